package photos

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwave/airwave/internal/model"
)

type fakePhotoStore struct {
	recent bool
	saved  []*model.AircraftPhoto
}

func (f *fakePhotoStore) HasRecentPhoto(ctx context.Context, registration string, maxAge time.Duration) (bool, error) {
	return f.recent, nil
}

func (f *fakePhotoStore) SaveAircraftPhoto(ctx context.Context, photo *model.AircraftPhoto) error {
	f.saved = append(f.saved, photo)
	return nil
}

type fakeMediaStore struct {
	saved map[string][]byte
}

func (f *fakeMediaStore) Save(ctx context.Context, key string, data []byte, contentType string) error {
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	f.saved[key] = data
	return nil
}
func (f *fakeMediaStore) LocalPath(key string) string                         { return "" }
func (f *fakeMediaStore) URL(ctx context.Context, key string) (string, error) { return "", nil }
func (f *fakeMediaStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, nil
}
func (f *fakeMediaStore) Exists(ctx context.Context, key string) bool { return false }
func (f *fakeMediaStore) Type() string                                { return "fake" }

func TestFetchIfNeededSkipsWhenRecent(t *testing.T) {
	store := &fakePhotoStore{recent: true}
	ms := &fakeMediaStore{}
	f := New("http://example.invalid", time.Hour, ms, store, zerolog.Nop())

	if err := f.FetchIfNeeded(context.Background(), "N12345"); err != nil {
		t.Fatal(err)
	}
	if len(store.saved) != 0 {
		t.Error("expected no photo saved when a recent one exists")
	}
}

func TestFetchIfNeededDownloadsAndSaves(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake-jpeg-bytes"))
	}))
	defer srv.Close()

	store := &fakePhotoStore{}
	ms := &fakeMediaStore{}
	f := New(srv.URL, time.Hour, ms, store, zerolog.Nop())

	if err := f.FetchIfNeeded(context.Background(), "N12345"); err != nil {
		t.Fatal(err)
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected 1 photo saved, got %d", len(store.saved))
	}
	if store.saved[0].Registration != "N12345" {
		t.Errorf("registration = %s, want N12345", store.saved[0].Registration)
	}
}

func TestFetchIfNeededSkipsOn404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	store := &fakePhotoStore{}
	ms := &fakeMediaStore{}
	f := New(srv.URL, time.Hour, ms, store, zerolog.Nop())

	if err := f.FetchIfNeeded(context.Background(), "N12345"); err != nil {
		t.Fatal(err)
	}
	if len(store.saved) != 0 {
		t.Error("expected no photo saved on 404")
	}
}
