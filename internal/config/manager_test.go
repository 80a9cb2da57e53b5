package config

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]map[string]string)}
}

func (f *fakeStore) GetSetting(_ context.Context, category, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[category][key]
	return v, ok, nil
}

func (f *fakeStore) SetSetting(_ context.Context, category, key, valueJSON string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[category] == nil {
		f.data[category] = make(map[string]string)
	}
	f.data[category][key] = valueJSON
	return nil
}

func (f *fakeStore) ListSettings(_ context.Context, category string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string)
	for k, v := range f.data[category] {
		out[k] = v
	}
	return out, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestManagerGetSetNoOverride(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	m, err := NewManager(ctx, fs, testLogger())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	var got TAR1090Settings
	if err := m.GetInto(CategoryTAR1090, "primary", &got); err != nil {
		t.Fatalf("GetInto: %v", err)
	}
	if got.Enabled {
		t.Error("expected zero-value default when no override exists")
	}
}

func TestManagerSetPersistsAndCaches(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	m, err := NewManager(ctx, fs, testLogger())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	want := TAR1090Settings{Enabled: true, URL: "http://localhost/data/aircraft.json", PollInterval: 1000}
	if err := m.Set(ctx, CategoryTAR1090, "primary", want); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got TAR1090Settings
	if err := m.GetInto(CategoryTAR1090, "primary", &got); err != nil {
		t.Fatalf("GetInto: %v", err)
	}
	if got != want {
		t.Errorf("GetInto = %+v, want %+v", got, want)
	}

	raw, ok, err := fs.GetSetting(ctx, CategoryTAR1090, "primary")
	if err != nil || !ok || raw == "" {
		t.Errorf("expected persisted override in store, got ok=%v err=%v", ok, err)
	}
}

func TestManagerOnChangeFiresSynchronously(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	m, err := NewManager(ctx, fs, testLogger())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	var categoryHits, keyHits int
	m.OnChange(CategoryAudio, "", func(category, key, valueJSON string) { categoryHits++ })
	m.OnChange(CategoryAudio, "vad_threshold_db", func(category, key, valueJSON string) { keyHits++ })

	if err := m.Set(ctx, CategoryAudio, "vad_threshold_db", -40.0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if categoryHits != 1 {
		t.Errorf("categoryHits = %d, want 1", categoryHits)
	}
	if keyHits != 1 {
		t.Errorf("keyHits = %d, want 1", keyHits)
	}

	if err := m.Set(ctx, CategoryAudio, "min_segment_ms", 200); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if categoryHits != 2 {
		t.Errorf("categoryHits after unrelated key set = %d, want 2", categoryHits)
	}
	if keyHits != 1 {
		t.Errorf("keyHits after unrelated key set = %d, want unchanged at 1", keyHits)
	}
}
