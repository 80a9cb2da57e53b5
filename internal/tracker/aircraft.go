// Package tracker implements the in-memory Aircraft Tracker (C7) and HFGCS
// Tracker (C8): live-aircraft maps with bounded track history and periodic
// eviction.
package tracker

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwave/airwave/internal/bus"
	"github.com/airwave/airwave/internal/model"
)

// DefaultTrackRingSize is the bounded number of track points retained per aircraft.
const DefaultTrackRingSize = 200

// DefaultStaleTimeout evicts an aircraft after this long without an update.
const DefaultStaleTimeout = 300 * time.Second

// Registration is one hex->registration/type identity resolved at boot (or
// refreshed at runtime) from the store's hex_to_registration table.
type Registration struct {
	Hex          string
	Registration string
	AircraftType string
	Airline      string
}

// AircraftTracker owns the live-aircraft map exclusively: no external
// mutation. Keyed by hex when present, falling back to tail then flight.
type AircraftTracker struct {
	mu    sync.RWMutex
	byKey map[string]*model.Aircraft

	ringSize     int
	staleTimeout time.Duration
	bus          *bus.Bus
	log          zerolog.Logger

	registry map[string]Registration // hex (uppercase) -> registration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs an AircraftTracker. ringSize <= 0 uses DefaultTrackRingSize;
// staleTimeout <= 0 uses DefaultStaleTimeout.
func New(ringSize int, staleTimeout time.Duration, b *bus.Bus, log zerolog.Logger) *AircraftTracker {
	if ringSize <= 0 {
		ringSize = DefaultTrackRingSize
	}
	if staleTimeout <= 0 {
		staleTimeout = DefaultStaleTimeout
	}
	return &AircraftTracker{
		byKey:        make(map[string]*model.Aircraft),
		ringSize:     ringSize,
		staleTimeout: staleTimeout,
		bus:          b,
		log:          log.With().Str("component", "aircraft_tracker").Logger(),
		registry:     make(map[string]Registration),
		stopCh:       make(chan struct{}),
	}
}

func identifierFor(msg *model.Message) string {
	if msg.Identity == nil {
		return ""
	}
	if msg.Identity.Hex != "" {
		return "hex:" + strings.ToUpper(msg.Identity.Hex)
	}
	if msg.Identity.Tail != "" {
		return "tail:" + strings.ToUpper(msg.Identity.Tail)
	}
	if msg.Identity.Flight != "" {
		return "flight:" + strings.ToUpper(msg.Identity.Flight)
	}
	return ""
}

// Upsert updates (or creates) the live record for msg's aircraft and
// appends a track point when position/kinematics are present. O(1).
func (t *AircraftTracker) Upsert(msg *model.Message) {
	key := identifierFor(msg)
	if key == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ac, ok := t.byKey[key]
	if !ok {
		ac = &model.Aircraft{}
		t.byKey[key] = ac
	}
	if msg.Identity != nil {
		if msg.Identity.Hex != "" {
			ac.Hex = strings.ToUpper(msg.Identity.Hex)
			if reg, ok := t.registry[ac.Hex]; ok {
				ac.Registration = reg.Registration
				ac.Type = reg.AircraftType
				if ac.Airline == "" {
					ac.Airline = reg.Airline
				}
			}
		}
		if msg.Identity.Flight != "" {
			ac.Flight = msg.Identity.Flight
		}
		if msg.Identity.Tail != "" {
			ac.Tail = msg.Identity.Tail
		}
		if msg.Identity.Airline != "" {
			ac.Airline = msg.Identity.Airline
		}
	}

	// Drop out-of-order snapshots: an older record must never regress the
	// live state once a newer one has been applied.
	if !ac.LastMessageAt.IsZero() && msg.Timestamp.Before(ac.LastMessageAt) {
		return
	}

	if msg.Position != nil {
		ac.LastPosition = msg.Position
	}
	if msg.Kinematics != nil {
		ac.LastKinematics = msg.Kinematics
	}
	ac.LastMessageAt = msg.Timestamp
	ac.Phase = msg.Phase

	if msg.Position != nil {
		point := model.TrackPoint{
			Lat:        msg.Position.Lat,
			Lon:        msg.Position.Lon,
			AltitudeFt: msg.Position.AltitudeFt,
			Timestamp:  msg.Timestamp,
		}
		if msg.Kinematics != nil {
			point.GroundSpeed = msg.Kinematics.GroundSpeed
			point.Heading = msg.Kinematics.Heading
			point.VerticalRate = msg.Kinematics.VerticalRate
		}
		ac.Track = append(ac.Track, point)
		if len(ac.Track) > t.ringSize {
			ac.Track = ac.Track[len(ac.Track)-t.ringSize:]
		}
	}
}

// Get resolves identifier (a bare hex/tail/flight, case-insensitive) to its
// live Aircraft record.
func (t *AircraftTracker) Get(identifier string) (*model.Aircraft, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	up := strings.ToUpper(identifier)
	for _, prefix := range []string{"hex:", "tail:", "flight:"} {
		if ac, ok := t.byKey[prefix+up]; ok {
			return ac, true
		}
	}
	return nil, false
}

// ListActive returns every live aircraft, O(live-set).
func (t *AircraftTracker) ListActive() []*model.Aircraft {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*model.Aircraft, 0, len(t.byKey))
	for _, ac := range t.byKey {
		out = append(out, ac)
	}
	return out
}

// EvictStale removes every aircraft whose last update is older than
// staleTimeout relative to now, returning the number evicted.
func (t *AircraftTracker) EvictStale(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	evicted := 0
	for key, ac := range t.byKey {
		if now.Sub(ac.LastMessageAt) > t.staleTimeout {
			delete(t.byKey, key)
			evicted++
		}
	}
	return evicted
}

// RunEvictionLoop periodically calls EvictStale until ctx is canceled.
func (t *AircraftTracker) RunEvictionLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		case now := <-ticker.C:
			if n := t.EvictStale(now); n > 0 {
				t.log.Debug().Int("evicted", n).Msg("evicted stale aircraft")
			}
		}
	}
}

// Stop halts RunEvictionLoop if running in a goroutine this tracker doesn't
// otherwise own the lifecycle of.
func (t *AircraftTracker) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}

// LoadRegistry replaces the hex->registration identity table consulted by
// Upsert, keyed by uppercase hex. Safe to call again at runtime to refresh
// the table without restarting the tracker.
func (t *AircraftTracker) LoadRegistry(rows []Registration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.registry = make(map[string]Registration, len(rows))
	for _, r := range rows {
		t.registry[strings.ToUpper(r.Hex)] = r
	}
}
