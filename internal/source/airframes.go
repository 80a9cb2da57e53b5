package source

import (
	"context"
	"encoding/json"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/airwave/airwave/internal/model"
)

// airframesRecord is one ACARS/VDLM2/HFDL record as relayed by the
// Airframes acarshub-compatible WebSocket feed.
type airframesRecord struct {
	Freq     float64 `json:"freq"`
	Station  string  `json:"station_id"`
	Tail     string  `json:"tail"`
	Flight   string  `json:"flight"`
	Label    string  `json:"label"`
	Text     string  `json:"text"`
	Protocol string  `json:"protocol"` // "acars" | "vdlm2" | "hfdl"
}

var (
	oooiPattern = regexp.MustCompile(`\b(OUT|OFF|ON|IN)\b\s*\d{3,4}Z?`)
)

// AirframesSource connects to an upstream WebSocket relay of ACARS-style
// messages. When no URL is configured, it runs a mock timer that synthesizes
// plausible traffic so downstream processing can be exercised without a
// reachable endpoint.
type AirframesSource struct {
	url  string
	emit Emitter
	log  zerolog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	cancel    context.CancelFunc
	done      chan struct{}
	connected atomic.Bool
	messages  atomic.Int64
	lastErr   atomic.Value // string
}

func NewAirframesSource(url string, emit Emitter, log zerolog.Logger) *AirframesSource {
	s := &AirframesSource{url: url, emit: emit, log: log.With().Str("source", "airframes").Logger()}
	s.lastErr.Store("")
	return s
}

func (s *AirframesSource) Name() string { return "airframes" }

func (s *AirframesSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	if s.url == "" {
		go s.mockLoop(runCtx)
	} else {
		go s.connectLoop(runCtx)
	}
	return nil
}

func (s *AirframesSource) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
		return context.DeadlineExceeded
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AirframesSource) Stats() Stats {
	return Stats{
		Connected:    s.connected.Load(),
		LastUpdate:   time.Now().UTC(),
		MessageCount: s.messages.Load(),
		LastError:    s.lastErr.Load().(string),
	}
}

// connectLoop dials the upstream WebSocket, auto-reconnecting with backoff
// on disconnect until the context is canceled.
func (s *AirframesSource) connectLoop(ctx context.Context) {
	defer close(s.done)
	backoff := time.Second

	for ctx.Err() == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err != nil {
			s.connected.Store(false)
			s.lastErr.Store(err.Error())
			s.log.Warn().Err(err).Dur("retry_in", backoff).Msg("airframes dial failed")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			if backoff < 60*time.Second {
				backoff *= 2
			}
			continue
		}

		backoff = time.Second
		s.connected.Store(true)
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		s.readLoop(ctx, conn)
		s.connected.Store(false)
	}
}

func (s *AirframesSource) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.lastErr.Store(err.Error())
				s.log.Warn().Err(err).Msg("airframes read failed, reconnecting")
			}
			return
		}
		var rec airframesRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		s.emitRecord(rec)
	}
}

func (s *AirframesSource) emitRecord(rec airframesRecord) {
	msg := &model.Message{
		Timestamp: time.Now().UTC(),
		Source: model.SourceInfo{
			Type:      rec.Protocol,
			StationID: rec.Station,
			Frequency: rec.Freq,
		},
		SourceType: protocolToSourceType(rec.Protocol),
		Identity:   &model.Identity{Flight: rec.Flight, Tail: rec.Tail},
		Text:       rec.Text,
		Label:      rec.Label,
		Category:   categorizeACARSText(rec.Text),
	}
	s.messages.Add(1)
	s.emit(msg)
}

func protocolToSourceType(p string) model.SourceType {
	switch strings.ToLower(p) {
	case "vdlm2":
		return model.SourceVDLM2
	case "hfdl":
		return model.SourceHFDL
	default:
		return model.SourceACARS
	}
}

// categorizeACARSText applies the same first-match OOOI heuristic the
// Message Processor later formalizes, to every record this source emits
// (live or mock); the processor then assigns the final category.
func categorizeACARSText(text string) model.Category {
	if oooiPattern.MatchString(text) {
		return model.CategoryOOOI
	}
	return model.CategoryFreetext
}

// mockLoop synthesizes plausible ACARS traffic on a timer when no real
// endpoint is configured, so the rest of the pipeline can still be exercised.
func (s *AirframesSource) mockLoop(ctx context.Context) {
	defer close(s.done)
	s.connected.Store(true)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	tails := []string{"N12345", "N67890", "N24680"}
	texts := []string{"OUT 1423", "OFF 1430", "ON 1612", "IN 1618Z", "POS 4512N07345W FL350"}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rec := airframesRecord{
				Protocol: "acars",
				Station:  "MOCK",
				Tail:     tails[rand.Intn(len(tails))],
				Flight:   "MOCK1",
				Text:     texts[rand.Intn(len(texts))],
			}
			s.emitRecord(rec)
		}
	}
}
