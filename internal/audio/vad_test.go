package audio

import (
	"testing"
	"time"
)

func TestVADIdleRequiresSustainedOnset(t *testing.T) {
	v := NewVAD(Thresholds{})
	start := time.Unix(0, 0)

	tr := v.Step(start, 800)
	if tr.State != Idle {
		t.Fatalf("expected still idle on first loud frame, got %s", tr.State)
	}

	tr = v.Step(start.Add(500*time.Millisecond), 800)
	if tr.State != Idle {
		t.Fatalf("expected still idle before onset duration elapses, got %s", tr.State)
	}

	tr = v.Step(start.Add(1100*time.Millisecond), 800)
	if tr.State != Speaking || !tr.EnteredNow {
		t.Fatalf("expected speaking entered at onset threshold, got %s entered=%v", tr.State, tr.EnteredNow)
	}
}

func TestVADSilenceHangClosesSegment(t *testing.T) {
	v := NewVAD(Thresholds{})
	start := time.Unix(0, 0)
	v.Step(start, 800)
	v.Step(start.Add(1100*time.Millisecond), 800) // enters Speaking

	tr := v.Step(start.Add(1200*time.Millisecond), 10)
	if tr.State != Speaking {
		t.Fatalf("expected still speaking before silence hang elapses, got %s", tr.State)
	}

	tr = v.Step(start.Add(1750*time.Millisecond), 10)
	if tr.State != Closing || !tr.EnteredNow {
		t.Fatalf("expected closing after silence hang, got %s entered=%v", tr.State, tr.EnteredNow)
	}

	tr = v.Step(start.Add(1800*time.Millisecond), 0)
	if tr.State != Idle || !tr.EnteredNow {
		t.Fatalf("expected idle after closing flush, got %s", tr.State)
	}
}

func TestVADMaxSegmentTruncates(t *testing.T) {
	v := NewVAD(Thresholds{})
	start := time.Unix(0, 0)
	v.Step(start, 800)
	v.Step(start.Add(1100*time.Millisecond), 800) // enters Speaking at +1.1s

	tr := v.Step(start.Add(31200*time.Millisecond), 800)
	if tr.State != Closing || !tr.EnteredNow {
		t.Fatalf("expected closing at max_segment_ms even with continuous speech, got %s", tr.State)
	}
}
