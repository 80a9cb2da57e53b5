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

// ADSBExchangeSource polls the ADSB-Exchange v2 API, which uses the same
// aircraft.json shape as tar1090 but requires an API key header.
type ADSBExchangeSource struct {
	url     string
	apiKey  string
	client  *http.Client
	emit    Emitter
	log     zerolog.Logger
	poller  *poller
	changes *significantChangeTracker

	trackedEntities int
	messageCount    int64
}

func NewADSBExchangeSource(url, apiKey string, pollInterval time.Duration, emit Emitter, log zerolog.Logger) *ADSBExchangeSource {
	s := &ADSBExchangeSource{
		url:     url,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		emit:    emit,
		log:     log.With().Str("source", "adsbexchange").Logger(),
		changes: newSignificantChangeTracker(),
	}
	s.poller = newPoller("adsbexchange", pollInterval, 60*time.Second, s.fetch, s.log)
	return s
}

func (s *ADSBExchangeSource) Name() string                    { return "adsbexchange" }
func (s *ADSBExchangeSource) Start(ctx context.Context) error { return s.poller.start(ctx) }
func (s *ADSBExchangeSource) Stop(ctx context.Context) error  { return s.poller.stop(ctx) }

func (s *ADSBExchangeSource) Stats() Stats {
	return Stats{
		Connected:        s.poller.connected.Load(),
		TrackedEntities:  s.trackedEntities,
		LastUpdate:       s.poller.lastPoll.Load().(time.Time),
		UpdateIntervalMS: int(s.poller.rl.Interval().Milliseconds()),
		MessageCount:     s.messageCount,
		LastError:        s.poller.lastErr.Load().(string),
	}
}

func (s *ADSBExchangeSource) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return err
	}
	if s.apiKey != "" {
		req.Header.Set("api-auth", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := classifyHTTPStatus(resp); err != nil {
		return err
	}

	var body tar1090Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("adsbexchange: decode: %w", err)
	}

	s.trackedEntities = len(body.Aircraft)
	for _, row := range body.Aircraft {
		if row.Lat == nil || row.Lon == nil || row.Hex == "" {
			continue
		}
		snap := adsbSnapshot{
			Hex:         strings.ToUpper(row.Hex),
			Flight:      strings.TrimSpace(row.Flight),
			Lat:         *row.Lat,
			Lon:         *row.Lon,
			HasPosition: true,
			OnGround:    row.Ground,
			Squawk:      row.Squawk,
		}
		if row.AltBaro != nil {
			snap.AltitudeFt = *row.AltBaro
		}
		if row.GS != nil {
			snap.GroundSpeed = *row.GS
		}
		if row.Track != nil {
			snap.Heading = *row.Track
		}
		if row.BaroRate != nil {
			snap.VerticalRate = *row.BaroRate
		}

		phase := derivePhase(snap)
		if !s.changes.shouldEmit(snap.Hex, snap, phase) {
			continue
		}
		s.messageCount++
		s.emit(buildADSBMessage("adsbexchange", snap, phase))
	}
	return nil
}
