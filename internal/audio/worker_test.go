package audio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/airwave/airwave/internal/model"
)

type fakeTranscriptionStore struct {
	saved map[string]string
}

func (f *fakeTranscriptionStore) SaveTranscription(ctx context.Context, segmentID, text string, segments []model.TranscriptSegment) error {
	if f.saved == nil {
		f.saved = make(map[string]string)
	}
	f.saved[segmentID] = text
	return nil
}

func TestWorkerPoolTranscribesAndPersists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"skyking skyking do not answer","language":"en","duration":3.2,"segments":[{"start":0,"end":3.2,"text":"skyking skyking do not answer"}]}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	wavPath := filepath.Join(dir, "feed1_1700000000000.wav")
	if err := os.WriteFile(wavPath, []byte("RIFF....WAVEfmt "), 0o644); err != nil {
		t.Fatal(err)
	}

	store := &fakeTranscriptionStore{}
	pool := NewWorkerPool(WorkerPoolOptions{
		Whisper: NewWhisperClient(srv.URL, 5*time.Second),
		Store:   store,
		Workers: 1,
		Log:     discardLogger(),
	})
	pool.Start()

	if !pool.Enqueue(TranscribeJob{SegmentID: "seg-1", FilePath: wavPath, FeedID: "feed1"}) {
		t.Fatal("expected enqueue to succeed")
	}
	pool.Stop()

	if store.saved["seg-1"] == "" {
		t.Errorf("expected transcription to be persisted for seg-1, got %q", store.saved["seg-1"])
	}
}

func TestWorkerPoolRetriesOnceOnFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"ok","language":"en"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	wavPath := filepath.Join(dir, "f.wav")
	os.WriteFile(wavPath, []byte("x"), 0o644)

	store := &fakeTranscriptionStore{}
	pool := NewWorkerPool(WorkerPoolOptions{
		Whisper: NewWhisperClient(srv.URL, 5*time.Second),
		Store:   store,
		Workers: 1,
		Log:     discardLogger(),
	})
	pool.Start()
	pool.Enqueue(TranscribeJob{SegmentID: "seg-2", FilePath: wavPath})
	pool.Stop()

	if attempts != 2 {
		t.Errorf("expected 2 attempts (1 retry), got %d", attempts)
	}
	if store.saved["seg-2"] != "ok" {
		t.Errorf("expected retry to succeed and persist, got %q", store.saved["seg-2"])
	}
}
