package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// openSkyResponse is the /api/states/all response shape: each state is a
// positional array, not an object.
type openSkyResponse struct {
	Time   int64           `json:"time"`
	States [][]interface{} `json:"states"`
}

// OpenSkySource polls the OpenSky Network public states API.
type OpenSkySource struct {
	url     string
	client  *http.Client
	emit    Emitter
	log     zerolog.Logger
	poller  *poller
	changes *significantChangeTracker

	trackedEntities int
	messageCount    int64
}

func NewOpenSkySource(url string, pollInterval time.Duration, emit Emitter, log zerolog.Logger) *OpenSkySource {
	s := &OpenSkySource{
		url:     url,
		client:  &http.Client{Timeout: 15 * time.Second},
		emit:    emit,
		log:     log.With().Str("source", "opensky").Logger(),
		changes: newSignificantChangeTracker(),
	}
	s.poller = newPoller("opensky", pollInterval, 120*time.Second, s.fetch, s.log)
	return s
}

func (s *OpenSkySource) Name() string                    { return "opensky" }
func (s *OpenSkySource) Start(ctx context.Context) error { return s.poller.start(ctx) }
func (s *OpenSkySource) Stop(ctx context.Context) error  { return s.poller.stop(ctx) }

func (s *OpenSkySource) Stats() Stats {
	return Stats{
		Connected:        s.poller.connected.Load(),
		TrackedEntities:  s.trackedEntities,
		LastUpdate:       s.poller.lastPoll.Load().(time.Time),
		UpdateIntervalMS: int(s.poller.rl.Interval().Milliseconds()),
		MessageCount:     s.messageCount,
		LastError:        s.poller.lastErr.Load().(string),
	}
}

// stateVector indexes are fixed by the OpenSky REST API contract:
// [icao24, callsign, origin_country, time_position, last_contact, lon, lat,
//  baro_alt_m, on_ground, velocity_mps, true_track, vertical_rate_mps, ...]
const (
	idxICAO24     = 0
	idxCallsign   = 1
	idxLon        = 5
	idxLat        = 6
	idxBaroAlt    = 7
	idxOnGround   = 8
	idxVelocity   = 9
	idxTrueTrack  = 10
	idxVertRate   = 11
)

func (s *OpenSkySource) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := classifyHTTPStatus(resp); err != nil {
		return err
	}

	var body openSkyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("opensky: decode: %w", err)
	}

	s.trackedEntities = len(body.States)
	for _, state := range body.States {
		snap, flight, hex, ok := parseOpenSkyState(state)
		if !ok {
			continue
		}
		phase := derivePhase(snap)
		if !s.changes.shouldEmit(hex, snap, phase) {
			continue
		}
		s.messageCount++
		msg := buildADSBMessage("opensky", snap, phase)
		msg.Identity.Flight = flight
		s.emit(msg)
	}
	return nil
}

func parseOpenSkyState(state []interface{}) (adsbSnapshot, string, string, bool) {
	if len(state) <= idxVertRate {
		return adsbSnapshot{}, "", "", false
	}
	hex, _ := state[idxICAO24].(string)
	hex = strings.ToUpper(strings.TrimSpace(hex))
	if hex == "" {
		return adsbSnapshot{}, "", "", false
	}
	lat, latOK := state[idxLat].(float64)
	lon, lonOK := state[idxLon].(float64)
	if !latOK || !lonOK {
		return adsbSnapshot{}, "", "", false
	}
	flight, _ := state[idxCallsign].(string)
	flight = strings.TrimSpace(flight)

	snap := adsbSnapshot{Hex: hex, Flight: flight, Lat: lat, Lon: lon, HasPosition: true}
	if v, ok := state[idxBaroAlt].(float64); ok {
		snap.AltitudeFt = metersToFeet(v)
	}
	if v, ok := state[idxOnGround].(bool); ok {
		snap.OnGround = v
	}
	if v, ok := state[idxVelocity].(float64); ok {
		snap.GroundSpeed = mpsToKnots(v)
	}
	if v, ok := state[idxTrueTrack].(float64); ok {
		snap.Heading = v
	}
	if v, ok := state[idxVertRate].(float64); ok {
		snap.VerticalRate = v * 196.8504 // m/s -> feet/minute
	}
	return snap, flight, hex, true
}
