package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwave/airwave/internal/model"
)

type eamWatchRecord struct {
	Type           string `json:"type"`
	Header         string `json:"header"`
	Body           string `json:"body"`
	Confidence     int    `json:"confidence"`
	DetectedAt     string `json:"detected_at"`
	Codeword       string `json:"codeword"`
	TimeCode       string `json:"time_code"`
	Authentication string `json:"authentication"`
}

type eamWatchResponse struct {
	Messages   []eamWatchRecord `json:"messages"`
	NextCursor string           `json:"next_cursor"`
}

// EAMWatchSource polls the EAM.watch API, paginating by an opaque "since"
// cursor, and maps each record to a canonical EAM-typed Message.
type EAMWatchSource struct {
	url    string
	token  string
	client *http.Client
	emit   Emitter
	log    zerolog.Logger
	poller *poller

	cursor atomic.Value // string
	messageCount int64
}

func NewEAMWatchSource(url, token string, pollInterval time.Duration, emit Emitter, log zerolog.Logger) *EAMWatchSource {
	s := &EAMWatchSource{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
		emit:   emit,
		log:    log.With().Str("source", "eamwatch").Logger(),
	}
	s.cursor.Store("")
	s.poller = newPoller("eamwatch", pollInterval, 300*time.Second, s.fetch, s.log)
	return s
}

func (s *EAMWatchSource) Name() string                    { return "eamwatch" }
func (s *EAMWatchSource) Start(ctx context.Context) error { return s.poller.start(ctx) }
func (s *EAMWatchSource) Stop(ctx context.Context) error  { return s.poller.stop(ctx) }

func (s *EAMWatchSource) Stats() Stats {
	return Stats{
		Connected:        s.poller.connected.Load(),
		LastUpdate:       s.poller.lastPoll.Load().(time.Time),
		UpdateIntervalMS: int(s.poller.rl.Interval().Milliseconds()),
		MessageCount:     s.messageCount,
		LastError:        s.poller.lastErr.Load().(string),
	}
}

func (s *EAMWatchSource) fetch(ctx context.Context) error {
	cursor := s.cursor.Load().(string)
	url := s.url
	if cursor != "" {
		url = fmt.Sprintf("%s?since=%s", s.url, cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := classifyHTTPStatus(resp); err != nil {
		return err
	}

	var body eamWatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("eamwatch: decode: %w", err)
	}

	for _, rec := range body.Messages {
		detected, err := time.Parse(time.RFC3339, rec.DetectedAt)
		if err != nil {
			detected = time.Now().UTC()
		}
		msg := &model.Message{
			Timestamp:  detected,
			Source:     model.SourceInfo{Type: "eam", API: "eamwatch"},
			SourceType: model.SourceEAM,
			Text:       rec.Body,
			Label:      rec.Header,
			Category:   model.CategoryHFGCS,
			HFGCSType:  rec.Type,
		}
		s.messageCount++
		s.emit(msg)
	}
	if body.NextCursor != "" {
		s.cursor.Store(body.NextCursor)
	}
	return nil
}
