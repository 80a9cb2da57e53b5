package tracker

import (
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwave/airwave/internal/model"
)

func discardLogger() zerolog.Logger { return zerolog.New(io.Discard) }

func TestAircraftTrackerUpsertAndGet(t *testing.T) {
	tr := New(5, time.Minute, nil, discardLogger())

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr.Upsert(&model.Message{
		Timestamp: base,
		Identity:  &model.Identity{Hex: "ABC123", Flight: "UAL100"},
		Position:  &model.Position{Lat: 40, Lon: -75, AltitudeFt: 10000},
	})

	ac, ok := tr.Get("ABC123")
	if !ok {
		t.Fatal("expected aircraft to be found by hex")
	}
	if ac.Flight != "UAL100" {
		t.Errorf("Flight = %q, want UAL100", ac.Flight)
	}
	if len(ac.Track) != 1 {
		t.Errorf("Track length = %d, want 1", len(ac.Track))
	}
}

func TestAircraftTrackerDropsOutOfOrder(t *testing.T) {
	tr := New(5, time.Minute, nil, discardLogger())
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tr.Upsert(&model.Message{Timestamp: base, Identity: &model.Identity{Hex: "ABC123"}, Position: &model.Position{Lat: 40, Lon: -75}})
	tr.Upsert(&model.Message{Timestamp: base.Add(-time.Minute), Identity: &model.Identity{Hex: "ABC123"}, Position: &model.Position{Lat: 41, Lon: -76}})

	ac, _ := tr.Get("ABC123")
	if ac.LastPosition.Lat != 40 {
		t.Errorf("out-of-order message should have been dropped, LastPosition.Lat = %v, want 40", ac.LastPosition.Lat)
	}
	if len(ac.Track) != 1 {
		t.Errorf("out-of-order message should not append a track point, len = %d", len(ac.Track))
	}
}

func TestAircraftTrackerRingBounded(t *testing.T) {
	tr := New(3, time.Minute, nil, discardLogger())
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		tr.Upsert(&model.Message{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Identity:  &model.Identity{Hex: "ABC123"},
			Position:  &model.Position{Lat: float64(i), Lon: -75},
		})
	}
	ac, _ := tr.Get("ABC123")
	if len(ac.Track) != 3 {
		t.Errorf("Track length = %d, want bounded at 3", len(ac.Track))
	}
	if ac.Track[len(ac.Track)-1].Lat != 9 {
		t.Errorf("last track point Lat = %v, want 9 (most recent)", ac.Track[len(ac.Track)-1].Lat)
	}
}

func TestAircraftTrackerEvictStale(t *testing.T) {
	tr := New(5, 10*time.Second, nil, discardLogger())
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr.Upsert(&model.Message{Timestamp: base, Identity: &model.Identity{Hex: "ABC123"}})

	if n := tr.EvictStale(base.Add(5 * time.Second)); n != 0 {
		t.Errorf("should not evict before stale timeout, evicted %d", n)
	}
	if n := tr.EvictStale(base.Add(11 * time.Second)); n != 1 {
		t.Errorf("should evict after stale timeout, evicted %d, want 1", n)
	}
	if _, ok := tr.Get("ABC123"); ok {
		t.Error("evicted aircraft should no longer be found")
	}
}

func TestAircraftTrackerFallbackKeys(t *testing.T) {
	tr := New(5, time.Minute, nil, discardLogger())
	tr.Upsert(&model.Message{Timestamp: time.Now(), Identity: &model.Identity{Tail: "N12345"}})
	if _, ok := tr.Get("N12345"); !ok {
		t.Error("expected fallback lookup by tail to succeed")
	}

	tr.Upsert(&model.Message{Timestamp: time.Now(), Identity: &model.Identity{Flight: "DAL200"}})
	if _, ok := tr.Get("DAL200"); !ok {
		t.Error("expected fallback lookup by flight to succeed")
	}
}
