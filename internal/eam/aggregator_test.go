package eam

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwave/airwave/internal/bus"
	"github.com/airwave/airwave/internal/model"
)

func discardLogger() zerolog.Logger { return zerolog.New(io.Discard) }

type fakeSegmentStore struct {
	segments []*model.RecordingSegment
	saved    []*model.EAMMessage
}

func (f *fakeSegmentStore) GetRecordingsInTimeWindow(_ context.Context, feedID string, t time.Time, windowSec int) ([]*model.RecordingSegment, error) {
	var out []*model.RecordingSegment
	for _, s := range f.segments {
		if s.FeedID != feedID {
			continue
		}
		if s.StartTime.Sub(t).Abs() <= time.Duration(windowSec)*time.Second {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSegmentStore) SaveEAMMessage(_ context.Context, eam *model.EAMMessage) error {
	f.saved = append(f.saved, eam)
	return nil
}

func TestAggregateTranscriptionsSortsAndJoins(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	segs := []*model.RecordingSegment{
		{SegmentID: "b", StartTime: base.Add(2 * time.Second), DurationMs: 1000, TranscriptionText: "WORLD"},
		{SegmentID: "a", StartTime: base, DurationMs: 1000, TranscriptionText: "HELLO"},
	}
	agg := aggregateTranscriptions(segs)
	if agg.CombinedText != "HELLO WORLD" {
		t.Errorf("CombinedText = %q, want %q", agg.CombinedText, "HELLO WORLD")
	}
	if len(agg.SegmentIDs) != 2 || agg.SegmentIDs[0] != "a" || agg.SegmentIDs[1] != "b" {
		t.Errorf("SegmentIDs = %v, want [a b] in start_time order", agg.SegmentIDs)
	}
	if agg.FirstTimestamp != base {
		t.Errorf("FirstTimestamp = %v, want %v", agg.FirstTimestamp, base)
	}
}

func TestAggregateTranscriptionsSkipsEmptyText(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	segs := []*model.RecordingSegment{
		{SegmentID: "a", StartTime: base, TranscriptionText: "HELLO"},
		{SegmentID: "b", StartTime: base.Add(time.Second), TranscriptionText: "   "},
	}
	agg := aggregateTranscriptions(segs)
	if agg.CombinedText != "HELLO" {
		t.Errorf("CombinedText = %q, want %q", agg.CombinedText, "HELLO")
	}
	if agg.SegmentCount != 2 {
		t.Errorf("SegmentCount = %d, want 2 (blank transcription still counts as a segment)", agg.SegmentCount)
	}
}

func TestBuildSlidingWindows(t *testing.T) {
	segs := make([]*model.RecordingSegment, 5)
	for i := range segs {
		segs[i] = &model.RecordingSegment{SegmentID: string(rune('a' + i))}
	}
	windows := buildSlidingWindows(segs, 3)
	if len(windows) != 3 {
		t.Fatalf("got %d windows, want 3", len(windows))
	}
	if len(windows[0]) != 3 {
		t.Errorf("window size = %d, want 3", len(windows[0]))
	}

	small := buildSlidingWindows(segs[:2], 3)
	if len(small) != 1 || len(small[0]) != 2 {
		t.Errorf("expected a single window covering all segments when fewer than w, got %v", small)
	}
}

func TestFingerprintIsOrderIndependent(t *testing.T) {
	a := fingerprint([]string{"x", "y", "z"})
	b := fingerprint([]string{"z", "x", "y"})
	if a != b {
		t.Error("fingerprint should be order-independent")
	}
	c := fingerprint([]string{"x", "y"})
	if a == c {
		t.Error("fingerprint of different sets should differ")
	}
}

func TestAssignType(t *testing.T) {
	if got, ok := assignType("SKYKING SKYKING DO NOT ANSWER", Indicators{HasSkyking: true}); !ok || got != model.EAMTypeSkyking {
		t.Errorf("assignType with skyking = %v, %v, want EAMTypeSkyking, true", got, ok)
	}
	if got, ok := assignType("ABCDEF THIS IS A TEST", Indicators{}); !ok || got != model.EAMTypeEAM {
		t.Errorf("assignType with 6-char header = %v, %v, want EAMTypeEAM, true", got, ok)
	}
	if _, ok := assignType("ROGER WILCO", Indicators{}); ok {
		t.Error("assignType should reject text with no header or message-follows indicator")
	}
}

func TestAggregatorDetectPersistsAndPublishes(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeSegmentStore{
		segments: []*model.RecordingSegment{
			{SegmentID: "s1", FeedID: "hf1", StartTime: base, DurationMs: 5000, TranscriptionText: "SKYKING SKYKING DO NOT ANSWER"},
			{SegmentID: "s2", FeedID: "hf1", StartTime: base.Add(5 * time.Second), DurationMs: 5000, TranscriptionText: "I SAY AGAIN DO NOT ANSWER AUTHENTICATE ALPHA BRAVO"},
		},
	}
	b := bus.New(discardLogger(), 0)
	agg := NewAggregator(store, b, discardLogger())

	got, err := agg.Detect(context.Background(), "hf1", "s1", base)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if got == nil {
		t.Fatal("expected a detection, got nil")
	}
	if got.Type != model.EAMTypeSkyking {
		t.Errorf("Type = %v, want EAMTypeSkyking", got.Type)
	}
	if !got.MultiSegment {
		t.Error("expected MultiSegment to be true for a 2-segment detection")
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected 1 saved EAMMessage, got %d", len(store.saved))
	}

	// A second call with the same segment set is deduped.
	again, err := agg.Detect(context.Background(), "hf1", "s1", base)
	if err != nil {
		t.Fatalf("Detect (dedup): %v", err)
	}
	if again != nil {
		t.Error("expected a duplicate detection within the dedup window to return nil")
	}
	if len(store.saved) != 1 {
		t.Errorf("expected no additional save on dedup, got %d total", len(store.saved))
	}
}

func TestAggregatorDetectSkipsLowConfidence(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeSegmentStore{
		segments: []*model.RecordingSegment{
			{SegmentID: "s1", FeedID: "hf1", StartTime: base, DurationMs: 5000, TranscriptionText: "ROGER HOLD SHORT RUNWAY TWO SEVEN"},
		},
	}
	agg := NewAggregator(store, nil, discardLogger())

	got, err := agg.Detect(context.Background(), "hf1", "s1", base)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if got != nil {
		t.Errorf("expected no detection for routine chatter, got %+v", got)
	}
	if len(store.saved) != 0 {
		t.Errorf("expected no save for a below-threshold candidate, got %d", len(store.saved))
	}
}
