package tracker

import (
	"testing"
	"time"

	"github.com/airwave/airwave/internal/model"
)

func TestHFGCSDetectionLadder(t *testing.T) {
	hexTable := HexTable{"ADFEB4": model.ClassE4B}
	tailTable := TailTable{"N1": model.ClassE6B}
	tr := NewHFGCS(hexTable, tailTable, time.Minute, nil, discardLogger())

	tests := []struct {
		name       string
		msg        *model.Message
		wantMethod model.DetectionMethod
		wantClass  model.Classification
		wantHit    bool
	}{
		{"hex_table", &model.Message{Identity: &model.Identity{Hex: "ADFEB4"}}, model.DetectByHex, model.ClassE4B, true},
		{"callsign_prefix", &model.Message{Identity: &model.Identity{Flight: "IRON11"}}, model.DetectByCallsign, model.ClassE6B, true},
		{"tail_table", &model.Message{Identity: &model.Identity{Tail: "N1"}}, model.DetectByTail, model.ClassE6B, true},
		{"type_string", &model.Message{Text: "TACAMO E-6B on station"}, model.DetectByType, model.ClassE6B, true},
		{"civilian", &model.Message{Identity: &model.Identity{Flight: "UAL100"}, Text: "hello"}, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method, class, ok := tr.detect(tt.msg)
			if ok != tt.wantHit {
				t.Fatalf("ok = %v, want %v", ok, tt.wantHit)
			}
			if !ok {
				return
			}
			if method != tt.wantMethod {
				t.Errorf("method = %s, want %s", method, tt.wantMethod)
			}
			if class != tt.wantClass {
				t.Errorf("class = %s, want %s", class, tt.wantClass)
			}
		})
	}
}

func TestHFGCSDetectionPriorityHexWinsOverCallsign(t *testing.T) {
	hexTable := HexTable{"AABBCC": model.ClassE4B}
	tr := NewHFGCS(hexTable, nil, time.Minute, nil, discardLogger())

	msg := &model.Message{Identity: &model.Identity{Hex: "AABBCC", Flight: "IRON99"}}
	method, _, ok := tr.detect(msg)
	if !ok || method != model.DetectByHex {
		t.Errorf("expected hex detection to win, got method=%s ok=%v", method, ok)
	}
}

func TestHFGCSConsiderDetectedThenUpdated(t *testing.T) {
	tr := NewHFGCS(nil, nil, time.Minute, nil, discardLogger())
	now := time.Now().UTC()

	msg1 := &model.Message{Timestamp: now, Identity: &model.Identity{Flight: "IRON11"}}
	tr.Consider(msg1)

	active := tr.ListActive()
	if len(active) != 1 {
		t.Fatalf("expected 1 active aircraft, got %d", len(active))
	}

	msg2 := &model.Message{Timestamp: now.Add(time.Second), Identity: &model.Identity{Flight: "IRON11"}}
	tr.Consider(msg2)

	active = tr.ListActive()
	if len(active) != 1 {
		t.Fatalf("expected still 1 active aircraft after update, got %d", len(active))
	}
}

func TestHFGCSEvictStaleFiresLost(t *testing.T) {
	tr := NewHFGCS(nil, nil, 10*time.Second, nil, discardLogger())
	now := time.Now().UTC()
	tr.Consider(&model.Message{Timestamp: now, Identity: &model.Identity{Flight: "IRON11"}})

	if n := tr.EvictStale(now.Add(20 * time.Second)); n != 1 {
		t.Errorf("EvictStale = %d, want 1", n)
	}
	if len(tr.ListActive()) != 0 {
		t.Error("expected no active aircraft after eviction")
	}
}
