package adminapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwave/airwave/internal/bus"
)

type fakePinger struct{ err error }

func (f fakePinger) HealthCheck(ctx context.Context) error { return f.err }

func TestHealthzAlwaysOK(t *testing.T) {
	r := NewRouter(Options{Version: "test", StartTime: time.Now(), Log: zerolog.Nop()})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestReadyzReflectsStoreHealth(t *testing.T) {
	r := NewRouter(Options{Store: fakePinger{}, Log: zerolog.Nop()})
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	r = NewRouter(Options{Store: fakePinger{err: errors.New("down")}, Log: zerolog.Nop()})
	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestDebugBusReportsStats(t *testing.T) {
	b := bus.New(zerolog.Nop(), 0)
	r := NewRouter(Options{Bus: b, Log: zerolog.Nop()})
	req := httptest.NewRequest(http.MethodGet, "/debug/bus", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
