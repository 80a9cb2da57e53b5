package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwave/airwave/internal/model"
)

// tar1090Response is the dump1090/tar1090 aircraft.json snapshot shape.
type tar1090Response struct {
	Now      float64            `json:"now"`
	Aircraft []tar1090AircraftRow `json:"aircraft"`
}

type tar1090AircraftRow struct {
	Hex      string   `json:"hex"`
	Flight   string   `json:"flight"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	AltBaro  *float64 `json:"alt_baro"`
	GS       *float64 `json:"gs"`
	Track    *float64 `json:"track"`
	BaroRate *float64 `json:"baro_rate"`
	Squawk   string   `json:"squawk"`
	Ground   bool     `json:"ground"`
}

// TAR1090Source polls a local dump1090/tar1090 aircraft.json endpoint.
type TAR1090Source struct {
	url     string
	client  *http.Client
	emit    Emitter
	log     zerolog.Logger
	poller  *poller
	changes *significantChangeTracker

	trackedEntities int
	messageCount    int64
}

// NewTAR1090Source builds a TAR1090 source. pollInterval is the base poll
// period before any rate-limit backoff.
func NewTAR1090Source(url string, pollInterval time.Duration, emit Emitter, log zerolog.Logger) *TAR1090Source {
	s := &TAR1090Source{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		emit:    emit,
		log:     log.With().Str("source", "tar1090").Logger(),
		changes: newSignificantChangeTracker(),
	}
	s.poller = newPoller("tar1090", pollInterval, 60*time.Second, s.fetch, s.log)
	return s
}

func (s *TAR1090Source) Name() string { return "tar1090" }

func (s *TAR1090Source) Start(ctx context.Context) error { return s.poller.start(ctx) }

func (s *TAR1090Source) Stop(ctx context.Context) error { return s.poller.stop(ctx) }

func (s *TAR1090Source) Stats() Stats {
	return Stats{
		Connected:        s.poller.connected.Load(),
		TrackedEntities:  s.trackedEntities,
		LastUpdate:       s.poller.lastPoll.Load().(time.Time),
		UpdateIntervalMS: int(s.poller.rl.Interval().Milliseconds()),
		MessageCount:     s.messageCount,
		LastError:        s.poller.lastErr.Load().(string),
	}
}

func (s *TAR1090Source) fetch(ctx context.Context) error {
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

	var body tar1090Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("tar1090: decode: %w", err)
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
		s.emit(buildADSBMessage("tar1090", snap, phase))
	}
	return nil
}

// buildADSBMessage constructs the canonical Message for any ADS-B snapshot,
// shared by every concrete ADS-B source.
func buildADSBMessage(station string, snap adsbSnapshot, phase model.FlightPhase) *model.Message {
	return &model.Message{
		Timestamp:  time.Now().UTC(),
		Source:     model.SourceInfo{Type: "adsb", StationID: station},
		SourceType: model.SourceADSB,
		Identity:   &model.Identity{Flight: snap.Flight, Hex: snap.Hex},
		Position: &model.Position{
			Lat:         snap.Lat,
			Lon:         snap.Lon,
			AltitudeFt:  snap.AltitudeFt,
			Coordinates: formatCoordinates(snap.Lat, snap.Lon),
		},
		Kinematics: &model.Kinematics{
			GroundSpeed:  snap.GroundSpeed,
			Heading:      snap.Heading,
			VerticalRate: snap.VerticalRate,
			OnGround:     snap.OnGround,
			Squawk:       snap.Squawk,
		},
		Category: model.CategoryADSB,
		Phase:    phase,
	}
}
