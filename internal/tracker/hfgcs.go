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

// DefaultHFGCSStaleTimeout fires a "lost" event after this long without a message.
const DefaultHFGCSStaleTimeout = 600 * time.Second

// militaryCallsigns maps curated HFGCS-relay callsign prefixes to their
// aircraft classification: IRON/GORDO are TACAMO E-6B callsigns, GOTO/SLICK/
// TITAN are E-4B (Nightwatch) callsigns.
var militaryCallsigns = map[string]model.Classification{
	"IRON":  model.ClassE6B,
	"GORDO": model.ClassE6B,
	"GOTO":  model.ClassE4B,
	"SLICK": model.ClassE4B,
	"TITAN": model.ClassE4B,
}

var militaryTypeTokens = []string{"E6", "E-6", "E-6B", "E4", "E-4", "E-4B", "TACAMO", "NIGHTWATCH"}

// HFGCSAircraftEvent is the payload published on bus.TopicHFGCSAircraft.
type HFGCSAircraftEvent struct {
	Event    string                `json:"event"` // detected | updated | lost
	Aircraft *model.HFGCSAircraft `json:"aircraft"`
}

// HexTable maps curated ICAO hex values to a military Classification. The
// Supervisor passes the compiled-in DefaultHexTable; the store's
// hex_to_registration table does not feed it.
type HexTable map[string]model.Classification

// TailTable maps curated tail numbers to a military Classification.
type TailTable map[string]model.Classification

// HFGCSTracker detects and tracks military aircraft using a four-method
// detection ladder, first hit wins.
type HFGCSTracker struct {
	mu       sync.Mutex
	byHex    map[string]*model.HFGCSAircraft
	hexTable HexTable
	tailTable TailTable

	staleTimeout time.Duration
	bus          *bus.Bus
	log          zerolog.Logger
}

// NewHFGCS constructs an HFGCSTracker with the curated hex and tail tables loaded
// at boot (§4.7: "a reference to a tail/callsign table loaded at boot").
func NewHFGCS(hexTable HexTable, tailTable TailTable, staleTimeout time.Duration, b *bus.Bus, log zerolog.Logger) *HFGCSTracker {
	if staleTimeout <= 0 {
		staleTimeout = DefaultHFGCSStaleTimeout
	}
	if hexTable == nil {
		hexTable = HexTable{}
	}
	if tailTable == nil {
		tailTable = TailTable{}
	}
	return &HFGCSTracker{
		byHex:        make(map[string]*model.HFGCSAircraft),
		hexTable:     hexTable,
		tailTable:    tailTable,
		staleTimeout: staleTimeout,
		bus:          b,
		log:          log.With().Str("component", "hfgcs_tracker").Logger(),
	}
}

// detect applies the four-method ladder, first hit wins, and returns the
// detection method plus classification, or ok=false if none matched.
func (t *HFGCSTracker) detect(msg *model.Message) (model.DetectionMethod, model.Classification, bool) {
	if msg.Identity != nil && msg.Identity.Hex != "" {
		hex := strings.ToUpper(msg.Identity.Hex)
		if class, ok := t.hexTable[hex]; ok {
			return model.DetectByHex, class, true
		}
	}
	if msg.Identity != nil && msg.Identity.Flight != "" {
		flight := strings.ToUpper(msg.Identity.Flight)
		for prefix, class := range militaryCallsigns {
			if strings.HasPrefix(flight, prefix) {
				return model.DetectByCallsign, class, true
			}
		}
	}
	if msg.Identity != nil && msg.Identity.Tail != "" {
		tail := strings.ToUpper(msg.Identity.Tail)
		if class, ok := t.tailTable[tail]; ok {
			return model.DetectByTail, class, true
		}
	}
	upperText := strings.ToUpper(msg.Text)
	for _, token := range militaryTypeTokens {
		if strings.Contains(upperText, token) {
			class := model.ClassOtherMilitary
			if strings.Contains(token, "E-6") || token == "E6" || token == "TACAMO" {
				class = model.ClassE6B
			} else if strings.Contains(token, "E-4") || token == "E4" || token == "NIGHTWATCH" {
				class = model.ClassE4B
			}
			return model.DetectByType, class, true
		}
	}
	return "", "", false
}

// Consider runs the detection ladder against msg and, on a hit, creates or
// updates the corresponding HFGCSAircraft record, emitting a
// "detected"/"updated" event as appropriate.
func (t *HFGCSTracker) Consider(msg *model.Message) {
	method, class, ok := t.detect(msg)
	if !ok {
		return
	}

	key := identifierFor(msg)
	if key == "" {
		return
	}

	t.mu.Lock()
	ac, existed := t.byHex[key]
	now := msg.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if !existed {
		ac = &model.HFGCSAircraft{DetectedAt: now}
	}
	if msg.Identity != nil {
		ac.Hex = msg.Identity.Hex
		ac.Flight = msg.Identity.Flight
		ac.Tail = msg.Identity.Tail
	}
	ac.Military = true
	ac.DetectionMethod = method
	ac.Classification = class
	ac.LastMessageAt = now
	ac.LastSeenAt = now
	if msg.Position != nil {
		ac.LastPosition = msg.Position
	}
	t.byHex[key] = ac
	t.mu.Unlock()

	event := "updated"
	if !existed {
		event = "detected"
	}
	if t.bus != nil {
		t.bus.Publish(bus.TopicHFGCSAircraft, HFGCSAircraftEvent{Event: event, Aircraft: ac})
	}
	t.log.Info().Str("event", event).Str("key", key).Str("classification", string(class)).Msg("hfgcs aircraft")
}

// ListActive returns every currently tracked military aircraft.
func (t *HFGCSTracker) ListActive() []*model.HFGCSAircraft {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*model.HFGCSAircraft, 0, len(t.byHex))
	for _, ac := range t.byHex {
		out = append(out, ac)
	}
	return out
}

// EvictStale emits a "lost" event and removes any aircraft not seen within
// staleTimeout of now.
func (t *HFGCSTracker) EvictStale(now time.Time) int {
	t.mu.Lock()
	var lost []*model.HFGCSAircraft
	for key, ac := range t.byHex {
		if now.Sub(ac.LastSeenAt) > t.staleTimeout {
			delete(t.byHex, key)
			lost = append(lost, ac)
		}
	}
	t.mu.Unlock()

	for _, ac := range lost {
		if t.bus != nil {
			t.bus.Publish(bus.TopicHFGCSAircraft, HFGCSAircraftEvent{Event: "lost", Aircraft: ac})
		}
	}
	return len(lost)
}

// RunEvictionLoop periodically calls EvictStale until ctx is canceled.
func (t *HFGCSTracker) RunEvictionLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.EvictStale(now)
		}
	}
}
