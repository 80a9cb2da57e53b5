package eam

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/airwave/airwave/internal/bus"
	"github.com/airwave/airwave/internal/model"
)

// relatedSegmentsWindow bounds how far from a candidate segment's start_time
// the aggregator looks for correlated segments.
const relatedSegmentsWindow = 120 * time.Second

const dedupExpiry = 10 * time.Minute

const minEAMConfidence = 40

// segmentStore is the subset of store.Store the aggregator depends on.
type segmentStore interface {
	GetRecordingsInTimeWindow(ctx context.Context, feedID string, t time.Time, windowSec int) ([]*model.RecordingSegment, error)
	SaveEAMMessage(ctx context.Context, eam *model.EAMMessage) error
}

// AggregatedText is the result of concatenating a correlated group of
// segment transcriptions.
type AggregatedText struct {
	CombinedText    string
	SegmentIDs      []string
	SegmentCount    int
	FirstTimestamp  time.Time
	LastTimestamp   time.Time
	DurationSeconds float64
}

// Aggregator is the EAM Segment Aggregator (C11): it correlates
// transcriptions across adjacent recording segments and emits EAMMessages.
type Aggregator struct {
	store segmentStore
	bus   *bus.Bus
	log   zerolog.Logger

	mu        sync.Mutex
	processed map[string]time.Time // fingerprint -> expiry
}

func NewAggregator(store segmentStore, b *bus.Bus, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		store:     store,
		bus:       b,
		log:       log.With().Str("component", "eam_aggregator").Logger(),
		processed: make(map[string]time.Time),
	}
}

// shouldTriggerAggregation is true when a segment's own transcription looks
// EAM-like enough to justify pulling in neighboring segments.
func shouldTriggerAggregation(text string) bool {
	cleaned := cleanTranscription(text)
	normalized := normalizePhonetics(cleaned)
	ind := detectEAMIndicators(normalized)
	if ind.HasStandBy || ind.HasMessageFollows || ind.HasISayAgain ||
		ind.HasMessageLength || ind.HasAuthentication || ind.HasSkyking || ind.HasRepeatedPatterns {
		return true
	}
	return extractPhoneticSequence(normalized).PhoneticCount >= 15
}

// ShouldTrigger reports whether a freshly transcribed segment's own text
// looks EAM-like enough to justify calling Detect, which pulls in and
// re-scores its neighboring segments. Callers should skip Detect entirely
// when this is false, since most ATC/HFGCS chatter never mentions an EAM.
func (a *Aggregator) ShouldTrigger(text string) bool {
	return shouldTriggerAggregation(text)
}

// getRelatedSegments queries the store for segments of the same feed within
// ±120s of t, capped at 10.
func (a *Aggregator) getRelatedSegments(ctx context.Context, feedID string, t time.Time) ([]*model.RecordingSegment, error) {
	segs, err := a.store.GetRecordingsInTimeWindow(ctx, feedID, t, int(relatedSegmentsWindow.Seconds()))
	if err != nil {
		return nil, err
	}
	if len(segs) > 10 {
		segs = segs[:10]
	}
	return segs, nil
}

// aggregateTranscriptions sorts segments by start_time and concatenates
// their non-empty transcriptions with single spaces.
func aggregateTranscriptions(segments []*model.RecordingSegment) AggregatedText {
	sorted := make([]*model.RecordingSegment, len(segments))
	copy(sorted, segments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartTime.Before(sorted[j].StartTime) })

	var parts []string
	var ids []string
	for _, seg := range sorted {
		ids = append(ids, seg.SegmentID)
		if strings.TrimSpace(seg.TranscriptionText) != "" {
			parts = append(parts, strings.TrimSpace(seg.TranscriptionText))
		}
	}

	var out AggregatedText
	out.CombinedText = strings.Join(parts, " ")
	out.SegmentIDs = ids
	out.SegmentCount = len(sorted)
	if len(sorted) > 0 {
		out.FirstTimestamp = sorted[0].StartTime
		last := sorted[len(sorted)-1]
		lastEnd := last.StartTime.Add(time.Duration(last.DurationMs) * time.Millisecond)
		out.LastTimestamp = lastEnd
		out.DurationSeconds = lastEnd.Sub(out.FirstTimestamp).Seconds()
	}
	return out
}

// buildSlidingWindows yields all contiguous windows of size w (or the full
// set, if fewer than w segments exist).
func buildSlidingWindows(segments []*model.RecordingSegment, w int) [][]*model.RecordingSegment {
	if len(segments) <= w {
		return [][]*model.RecordingSegment{segments}
	}
	var windows [][]*model.RecordingSegment
	for i := 0; i+w <= len(segments); i++ {
		windows = append(windows, segments[i:i+w])
	}
	return windows
}

// fingerprint returns an order-independent identity for a set of segment IDs.
func fingerprint(segmentIDs []string) string {
	sorted := make([]string, len(segmentIDs))
	copy(sorted, segmentIDs)
	sort.Strings(sorted)
	sum := sha1.Sum([]byte(strings.Join(sorted, "|")))
	return hex.EncodeToString(sum[:])
}

// markSegmentsProcessed records segmentIDs (order-independent) as having
// produced an EAMMessage, expiring the entry after 10 minutes.
func (a *Aggregator) markSegmentsProcessed(segmentIDs []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gcLocked(time.Now())
	a.processed[fingerprint(segmentIDs)] = time.Now().Add(dedupExpiry)
}

// isProcessed reports whether segmentIDs (regardless of order) have already
// produced an EAMMessage within the dedup window.
func (a *Aggregator) isProcessed(segmentIDs []string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gcLocked(time.Now())
	expiry, ok := a.processed[fingerprint(segmentIDs)]
	return ok && time.Now().Before(expiry)
}

func (a *Aggregator) gcLocked(now time.Time) {
	for k, expiry := range a.processed {
		if now.After(expiry) {
			delete(a.processed, k)
		}
	}
}

// assignType returns the EAM type for a candidate body: SKYKING wins if
// flagged, else EAM if a 6-char header-like prefix is present or the
// message-follows indicator fired.
func assignType(body string, ind Indicators) (model.EAMType, bool) {
	if ind.HasSkyking {
		return model.EAMTypeSkyking, true
	}
	fields := strings.Fields(body)
	hasHeaderLike := len(fields) > 0 && len(fields[0]) == 6
	if hasHeaderLike || ind.HasMessageFollows {
		return model.EAMTypeEAM, true
	}
	return "", false
}

// slidingWindowSize is the contiguous-segment group size buildSlidingWindows
// uses for the candidates scored alongside the full related-segment set.
const slidingWindowSize = 3

// candidate is one scored combination of segments considered by Detect.
type candidate struct {
	agg        AggregatedText
	normalized string
	confidence int
	eamType    model.EAMType
}

// scoreCandidate runs the preprocessing pipeline over one grouping of
// segments and scores it, returning ok=false if no EAM type can be assigned.
func scoreCandidate(segments []*model.RecordingSegment) (candidate, bool) {
	agg := aggregateTranscriptions(segments)
	cleaned := cleanTranscription(agg.CombinedText)
	normalized := normalizePhonetics(cleaned)
	ind := detectEAMIndicators(normalized)
	phonetics := extractPhoneticSequence(normalized)
	confidence := estimateConfidence(ind, phonetics.PhoneticCount)

	eamType, ok := assignType(normalized, ind)
	if !ok {
		return candidate{}, false
	}
	return candidate{agg: agg, normalized: normalized, confidence: confidence, eamType: eamType}, true
}

// bestCandidate scores the full related-segment set plus every sliding
// window of slidingWindowSize, and returns the highest-confidence candidate
// that clears minEAMConfidence. Windows exist because a long run of
// unrelated chatter between two real EAM segments can dilute the full set's
// combined text below threshold even though a tighter grouping would not.
func bestCandidate(segments []*model.RecordingSegment) (candidate, bool) {
	var best candidate
	found := false

	groups := append([][]*model.RecordingSegment{segments}, buildSlidingWindows(segments, slidingWindowSize)...)
	for _, g := range groups {
		c, ok := scoreCandidate(g)
		if !ok || c.confidence < minEAMConfidence {
			continue
		}
		if !found || c.confidence > best.confidence {
			best = c
			found = true
		}
	}
	return best, found
}

// Detect runs the full pipeline for one triggering segment: pulls related
// segments, scores the full group plus every sliding window of it, and — if
// the best-scoring candidate clears the threshold and hasn't already been
// processed — persists an EAMMessage and publishes eam_detected.
func (a *Aggregator) Detect(ctx context.Context, feedID string, triggerSegmentID string, triggerTime time.Time) (*model.EAMMessage, error) {
	segments, err := a.getRelatedSegments(ctx, feedID, triggerTime)
	if err != nil {
		return nil, fmt.Errorf("eam aggregator: get related segments: %w", err)
	}
	if len(segments) == 0 {
		return nil, nil
	}

	best, ok := bestCandidate(segments)
	if !ok {
		return nil, nil
	}
	if a.isProcessed(best.agg.SegmentIDs) {
		return nil, nil
	}

	agg := best.agg
	normalized := best.normalized
	confidence := best.confidence
	eamType := best.eamType

	now := time.Now().UTC()
	eamMsg := &model.EAMMessage{
		ID:               uuid.NewString(),
		FeedID:           feedID,
		Type:             eamType,
		MessageBody:      normalized,
		MessageLength:    len(normalized),
		Confidence:       confidence,
		FirstDetected:    agg.FirstTimestamp,
		LastDetected:     now,
		SegmentIDs:       agg.SegmentIDs,
		MultiSegment:     len(agg.SegmentIDs) >= 2,
		RawTranscription: agg.CombinedText,
	}
	if eamMsg.FirstDetected.IsZero() {
		eamMsg.FirstDetected = now
	}

	if err := a.store.SaveEAMMessage(ctx, eamMsg); err != nil {
		return nil, fmt.Errorf("eam aggregator: save: %w", err)
	}
	a.markSegmentsProcessed(agg.SegmentIDs)

	if a.bus != nil {
		a.bus.Publish(bus.TopicEAMDetected, eamMsg)
	}
	a.log.Info().Str("eam_id", eamMsg.ID).Str("type", string(eamType)).Int("confidence", confidence).Msg("eam detected")

	return eamMsg, nil
}
