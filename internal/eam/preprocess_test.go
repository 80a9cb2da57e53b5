package eam

import "testing"

func TestCleanTranscriptionStripsNoise(t *testing.T) {
	in := "[12:30:45] skyking skyking [Unknown] do not answer 2024-01-02T03:04:05Z  12s"
	got := cleanTranscription(in)
	want := "SKYKING SKYKING DO NOT ANSWER"
	if got != want {
		t.Errorf("cleanTranscription(%q) = %q, want %q", in, got, want)
	}
}

func TestNormalizePhoneticsCorrectsSubstitutions(t *testing.T) {
	in := "FORCE STRONG HILO UH COPY"
	got := normalizePhonetics(in)
	want := "FOXTROT SIERRA HOTEL COPY"
	if got != want {
		t.Errorf("normalizePhonetics(%q) = %q, want %q", in, got, want)
	}
}

func TestExtractPhoneticSequenceDecodesLettersAndDigits(t *testing.T) {
	seq := extractPhoneticSequence("ALPHA BRAVO ZERO ONE COPY THAT")
	if seq.Decoded != "AB01" {
		t.Errorf("Decoded = %q, want AB01", seq.Decoded)
	}
	if seq.PhoneticCount != 4 {
		t.Errorf("PhoneticCount = %d, want 4", seq.PhoneticCount)
	}
}

func TestDetectEAMIndicators(t *testing.T) {
	cases := []struct {
		name string
		text string
		want Indicators
	}{
		{"standby", "STAND BY FOR MESSAGE", Indicators{HasStandBy: true}},
		{"message follows", "MESSAGE FOLLOWS BREAK BREAK", Indicators{HasMessageFollows: true, HasRepeatedPatterns: true}},
		{"say again", "I SAY AGAIN COPY", Indicators{HasISayAgain: true}},
		{"message length", "MESSAGE LENGTH 123 CHARACTERS", Indicators{HasMessageLength: true}},
		{"authentication", "AUTHENTICATE ALPHA BRAVO", Indicators{HasAuthentication: true}},
		{"skyking", "SKYKING SKYKING DO NOT ANSWER", Indicators{HasSkyking: true, HasRepeatedPatterns: true}},
		{"plain chatter", "ROGER THAT HEADING TWO SEVEN ZERO", Indicators{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := detectEAMIndicators(tc.text)
			if got != tc.want {
				t.Errorf("detectEAMIndicators(%q) = %+v, want %+v", tc.text, got, tc.want)
			}
		})
	}
}

func TestHasRepeatedPatternsDetectsImmediateRepeat(t *testing.T) {
	if !hasRepeatedPatterns("SKYKING SKYKING DO NOT ANSWER") {
		t.Error("expected repeated single-word phrase to be detected")
	}
	if !hasRepeatedPatterns("ALPHA BRAVO ALPHA BRAVO COPY") {
		t.Error("expected repeated two-word phrase to be detected")
	}
	if hasRepeatedPatterns("ALPHA BRAVO CHARLIE DELTA") {
		t.Error("did not expect a repeat in non-repeating text")
	}
}

func TestEstimateConfidenceCapsAt100(t *testing.T) {
	ind := Indicators{
		HasStandBy: true, HasMessageFollows: true, HasISayAgain: true,
		HasMessageLength: true, HasRepeatedPatterns: true, HasAuthentication: true,
		HasSkyking: true,
	}
	got := estimateConfidence(ind, 50)
	if got != 100 {
		t.Errorf("estimateConfidence = %d, want 100", got)
	}
}

func TestEstimateConfidenceCapsPhoneticContributionAt30(t *testing.T) {
	got := estimateConfidence(Indicators{}, 100)
	if got != 30 {
		t.Errorf("estimateConfidence with no indicators, 100 phonetics = %d, want 30 (phonetic cap)", got)
	}
}

func TestShouldTriggerAggregation(t *testing.T) {
	if !shouldTriggerAggregation("SKYKING SKYKING DO NOT ANSWER") {
		t.Error("expected skyking chatter to trigger aggregation")
	}
	if shouldTriggerAggregation("ROGER HOLD SHORT RUNWAY TWO SEVEN") {
		t.Error("did not expect routine ATC chatter to trigger aggregation")
	}
}
