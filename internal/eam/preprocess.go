// Package eam implements the EAM Preprocessor (C10) and Segment Aggregator
// (C11): pure text transforms over Whisper transcriptions plus temporal
// correlation across recording segments.
package eam

import (
	"regexp"
	"strings"
)

var (
	compactDatePattern  = regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`)
	spacedDatePattern   = regexp.MustCompile(`\b\d{1,2}\s+\d{1,2}\s+\d{2,4}\b`)
	isoTimestampPattern = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z?\b`)
	bracketedHMSPattern = regexp.MustCompile(`\[\d{1,2}:\d{2}:\d{2}\]`)
	bracketedMSPattern  = regexp.MustCompile(`\[\d{1,2}:\d{2}\]`)
	durationPattern     = regexp.MustCompile(`\b\d+(s|sec|m\d+s)\b`)
	unknownMarkerPattern = regexp.MustCompile(`\[Unknown\]`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

// cleanTranscription strips timestamp and marker noise a speech recognizer
// commonly injects, collapses whitespace, and uppercases the result.
func cleanTranscription(s string) string {
	s = compactDatePattern.ReplaceAllString(s, "")
	s = spacedDatePattern.ReplaceAllString(s, "")
	s = isoTimestampPattern.ReplaceAllString(s, "")
	s = bracketedHMSPattern.ReplaceAllString(s, "")
	s = bracketedMSPattern.ReplaceAllString(s, "")
	s = durationPattern.ReplaceAllString(s, "")
	s = unknownMarkerPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.ToUpper(strings.TrimSpace(s))
}

// phoneticCorrections maps common recognizer substitution errors onto the
// correct NATO phonetic word.
var phoneticCorrections = map[string]string{
	"FORCE":  "FOXTROT",
	"STRONG": "SIERRA",
	"HILO":   "HOTEL",
	"ALFA":   "ALPHA",
	"VICTOR": "VICTOR",
}

var fillerPattern = regexp.MustCompile(`\b(I THINK|UH|UM|YOU KNOW)\b`)

// normalizePhonetics corrects common recognizer substitution errors and
// strips conversational fillers.
func normalizePhonetics(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if corrected, ok := phoneticCorrections[w]; ok {
			words[i] = corrected
		}
	}
	s = strings.Join(words, " ")
	s = fillerPattern.ReplaceAllString(s, "")
	return whitespacePattern.ReplaceAllString(s, " ")
}

// natoAlphabet maps each NATO phonetic word to its first letter. Both the
// ICAO spelling (JULIETT) and the common single-T misspelling a speech
// recognizer (or a human) produces (JULIET) are accepted.
var natoAlphabet = map[string]byte{
	"ALPHA": 'A', "BRAVO": 'B', "CHARLIE": 'C', "DELTA": 'D', "ECHO": 'E',
	"FOXTROT": 'F', "GOLF": 'G', "HOTEL": 'H', "INDIA": 'I',
	"JULIETT": 'J', "JULIET": 'J',
	"KILO": 'K', "LIMA": 'L', "MIKE": 'M', "NOVEMBER": 'N', "OSCAR": 'O',
	"PAPA": 'P', "QUEBEC": 'Q', "ROMEO": 'R', "SIERRA": 'S', "TANGO": 'T',
	"UNIFORM": 'U', "VICTOR": 'V', "WHISKEY": 'W', "XRAY": 'X', "YANKEE": 'Y',
	"ZULU": 'Z',
}

var natoDigits = map[string]byte{
	"ZERO": '0', "ONE": '1', "TWO": '2', "THREE": '3', "FOUR": '4',
	"FIVE": '5', "SIX": '6', "SEVEN": '7', "EIGHT": '8', "NINE": '9',
}

// PhoneticSequence is the result of decoding NATO phonetics and digit words
// out of a cleaned transcription.
type PhoneticSequence struct {
	Original      string
	Decoded       string
	PhoneticCount int
}

// extractPhoneticSequence walks the words of s and concatenates the decoded
// letter/digit for every recognized NATO phonetic or digit word, in order.
func extractPhoneticSequence(s string) PhoneticSequence {
	var decoded strings.Builder
	count := 0
	for _, w := range strings.Fields(s) {
		if letter, ok := natoAlphabet[w]; ok {
			decoded.WriteByte(letter)
			count++
			continue
		}
		if digit, ok := natoDigits[w]; ok {
			decoded.WriteByte(digit)
			count++
		}
	}
	return PhoneticSequence{Original: s, Decoded: decoded.String(), PhoneticCount: count}
}

// Indicators flags the presence of EAM-characteristic phrasing in a
// transcription.
type Indicators struct {
	HasStandBy         bool
	HasMessageFollows  bool
	HasISayAgain       bool
	HasMessageLength   bool
	HasAuthentication  bool
	HasSkyking         bool
	HasRepeatedPatterns bool
}

var (
	standByPattern        = regexp.MustCompile(`STAND\s*BY`)
	messageFollowsPattern = regexp.MustCompile(`MESSAGE\s+FOLLOWS`)
	iSayAgainPattern      = regexp.MustCompile(`I\s+SAY\s+AGAIN`)
	messageLengthPattern  = regexp.MustCompile(`MESSAGE\s+(LENGTH|IS)\s+\d+\s+CHARACTERS?`)
	authenticationPattern = regexp.MustCompile(`AUTHENTICAT(E|ION)`)
	skykingPattern        = regexp.MustCompile(`SKY\s*KING`)
)

// detectEAMIndicators scans a cleaned, normalized transcription for the set
// of phrases characteristic of an Emergency Action Message broadcast.
func detectEAMIndicators(s string) Indicators {
	return Indicators{
		HasStandBy:          standByPattern.MatchString(s),
		HasMessageFollows:   messageFollowsPattern.MatchString(s),
		HasISayAgain:        iSayAgainPattern.MatchString(s),
		HasMessageLength:    messageLengthPattern.MatchString(s),
		HasAuthentication:   authenticationPattern.MatchString(s),
		HasSkyking:          skykingPattern.MatchString(s),
		HasRepeatedPatterns: hasRepeatedPatterns(s),
	}
}

// hasRepeatedPatterns detects an immediately-repeated one- or two-word phrase, a
// pattern EAM broadcasts exhibit (e.g. "SKYKING SKYKING").
func hasRepeatedPatterns(s string) bool {
	words := strings.Fields(s)
	for n := 2; n >= 1; n-- {
		for i := 0; i+2*n <= len(words); i++ {
			if strings.Join(words[i:i+n], " ") == strings.Join(words[i+n:i+2*n], " ") {
				return true
			}
		}
	}
	return false
}

// estimateConfidence scores 0..100 from the indicator set plus phonetic
// density, capping the phonetic contribution at 30 and the total at 100.
func estimateConfidence(ind Indicators, phoneticCount int) int {
	score := 0
	if ind.HasStandBy {
		score += 10
	}
	if ind.HasMessageFollows {
		score += 15
	}
	if ind.HasISayAgain {
		score += 15
	}
	if ind.HasMessageLength {
		score += 10
	}
	if ind.HasRepeatedPatterns {
		score += 10
	}
	if ind.HasAuthentication {
		score += 15
	}
	if ind.HasSkyking {
		score += 25
	}

	phoneticScore := phoneticCount * 3
	if phoneticScore > 30 {
		phoneticScore = 30
	}
	score += phoneticScore

	if score > 100 {
		score = 100
	}
	return score
}
