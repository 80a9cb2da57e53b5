package audio

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwave/airwave/internal/model"
)

type fakeSegmentStore struct {
	saved []*model.RecordingSegment
}

func (f *fakeSegmentStore) SaveRecording(ctx context.Context, seg *model.RecordingSegment) error {
	f.saved = append(f.saved, seg)
	return nil
}

type fakeDispatcher struct {
	jobs []TranscribeJob
}

func (f *fakeDispatcher) Enqueue(job TranscribeJob) bool {
	f.jobs = append(f.jobs, job)
	return true
}

func discardLogger() zerolog.Logger { return zerolog.Nop() }

func TestRecorderTruncatesLongSegmentIntoTwo(t *testing.T) {
	dir := t.TempDir()
	store := &fakeSegmentStore{}
	dispatcher := &fakeDispatcher{}
	rec := NewRecorder(dir, Thresholds{}, store, dispatcher, nil, discardLogger())

	loud := make([]byte, 320) // 100ms @ 16kHz mono s16le
	for i := 0; i+1 < len(loud); i += 2 {
		loud[i] = 0xFF
		loud[i+1] = 0x7F // int16 value 0x7FFF, well above the default threshold
	}
	silent := make([]byte, 320)

	ctx := context.Background()
	start := time.Unix(1700000000, 0)
	t0 := start
	for elapsed := 0; elapsed < 45000; elapsed += 100 {
		rec.Feed(ctx, "feed1", t0, loud)
		t0 = t0.Add(100 * time.Millisecond)
	}
	// silence to close the final segment
	for i := 0; i < 10; i++ {
		rec.Feed(ctx, "feed1", t0, silent)
		t0 = t0.Add(100 * time.Millisecond)
	}

	if len(store.saved) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(store.saved))
	}

	first, second := store.saved[0], store.saved[1]
	if d := first.DurationMs; d < 29900 || d > 30100 {
		t.Errorf("first segment duration = %dms, want ~30000", d)
	}
	if d := second.DurationMs; d < 14400 || d > 15600 {
		t.Errorf("second segment duration = %dms, want ~15000", d)
	}
	if !second.StartTime.After(first.StartTime) {
		t.Error("expected increasing start_time across segments")
	}
	if len(dispatcher.jobs) != 2 {
		t.Errorf("expected 2 transcription jobs enqueued, got %d", len(dispatcher.jobs))
	}

	for _, seg := range store.saved {
		if _, err := os.Stat(seg.FilePath); err != nil {
			t.Errorf("segment file missing: %v", err)
		}
	}
}

func TestRecorderStereoSplitsChannels(t *testing.T) {
	dir := t.TempDir()
	store := &fakeSegmentStore{}
	rec := NewRecorder(dir, Thresholds{}, store, nil, nil, discardLogger())

	frame := make([]byte, 640) // 100ms @ 16kHz stereo s16le
	for i := 0; i < len(frame); i += 4 {
		frame[i] = 0xFF   // left loud
		frame[i+1] = 0x7F // int16 value 0x7FFF
		frame[i+2] = 0x01 // right quiet
	}

	ctx := context.Background()
	t0 := time.Unix(1700000000, 0)
	for i := 0; i < 12; i++ {
		rec.FeedStereo(ctx, "feed2", t0, frame)
		t0 = t0.Add(100 * time.Millisecond)
	}
	silent := make([]byte, 640)
	for i := 0; i < 10; i++ {
		rec.FeedStereo(ctx, "feed2", t0, silent)
		t0 = t0.Add(100 * time.Millisecond)
	}

	if len(store.saved) != 1 {
		t.Fatalf("expected only the left channel to trigger a segment, got %d", len(store.saved))
	}
	if store.saved[0].FeedID != "feed2_L" {
		t.Errorf("expected feed2_L, got %s", store.saved[0].FeedID)
	}
}
