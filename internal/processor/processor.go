// Package processor implements the Message Processor (C6): a single-pass
// enrichment pipeline that categorizes, validates, persists, and dispatches
// every ingested Message.
package processor

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/airwave/airwave/internal/bus"
	"github.com/airwave/airwave/internal/model"
	"github.com/airwave/airwave/internal/schema"
)

// persistStore is the subset of store.Store the processor depends on.
type persistStore interface {
	SaveMessage(ctx context.Context, msg *model.Message) (bool, error)
}

// aircraftUpserter is the subset of tracker.AircraftTracker the processor depends on.
type aircraftUpserter interface {
	Upsert(msg *model.Message)
}

// hfgcsConsumer is the subset of tracker.HFGCSTracker the processor depends on.
type hfgcsConsumer interface {
	Consider(msg *model.Message)
}

// StageErrors counts failures per pipeline stage, for admin-surface metrics.
// Every counter is best-effort: a malformed record never halts the pipeline.
type StageErrors struct {
	Categorize atomic.Int64
	Validate   atomic.Int64
	Persist    atomic.Int64
}

// Processor is the C6 Message Processor.
type Processor struct {
	validator *schema.Validator
	store     persistStore
	tracker   aircraftUpserter
	hfgcs     hfgcsConsumer
	bus       *bus.Bus
	log       zerolog.Logger

	counter atomic.Int64
	Errors  StageErrors
}

// New constructs a Processor. tracker and hfgcs may be nil in configurations
// that don't run the corresponding trackers (e.g. offline replay tooling).
func New(validator *schema.Validator, store persistStore, tracker aircraftUpserter, hfgcs hfgcsConsumer, b *bus.Bus, log zerolog.Logger) *Processor {
	return &Processor{
		validator: validator,
		store:     store,
		tracker:   tracker,
		hfgcs:     hfgcs,
		bus:       b,
		log:       log.With().Str("component", "processor").Logger(),
	}
}

// Process runs the six-step enrichment pipeline on msg. It returns the
// enriched message, or nil if the message was dropped (currently: never —
// validation failures are persisted, not dropped — kept as a return value
// for callers that may introduce a drop policy later).
func (p *Processor) Process(ctx context.Context, msg *model.Message) *model.Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.MessageNumber = p.counter.Add(1)

	category, ex := safeCategorize(msg, &p.Errors.Categorize, p.log)
	msg.Category = category
	ex.apply(msg)

	if msg.SourceType != model.SourceADSB && p.validator != nil {
		p.validate(msg)
	}

	switch msg.SourceType {
	case model.SourceADSB:
		if p.tracker != nil {
			p.tracker.Upsert(msg)
		}
		if p.hfgcs != nil && isMilitaryIndicative(msg) {
			p.hfgcs.Consider(msg)
		}
	default:
		if p.store != nil {
			if _, err := p.store.SaveMessage(ctx, msg); err != nil {
				p.Errors.Persist.Add(1)
				p.log.Error().Err(err).Str("message_id", msg.ID).Msg("persist failed")
			}
		}
		if p.hfgcs != nil && isMilitaryIndicative(msg) {
			p.hfgcs.Consider(msg)
		}
	}

	if p.bus != nil {
		p.bus.Publish(bus.TopicMessage, msg)
	}

	return msg
}

func safeCategorize(msg *model.Message, counter *atomic.Int64, log zerolog.Logger) (cat model.Category, ex extraction) {
	defer func() {
		if r := recover(); r != nil {
			counter.Add(1)
			log.Error().Interface("panic", r).Str("message_id", msg.ID).Msg("categorize panicked, defaulting to freetext")
			cat = model.CategoryFreetext
			ex = extraction{}
		}
	}()
	return categorize(msg)
}

func (p *Processor) validate(msg *model.Message) {
	doc := messageToDoc(msg)
	result, err := p.validator.ValidateACARSMessage(doc)
	if err != nil {
		p.Errors.Validate.Add(1)
		msg.Validation = model.Validation{Valid: false, Errors: []string{err.Error()}}
		return
	}
	errs := make([]string, len(result.Errors))
	for i, e := range result.Errors {
		errs[i] = e.Pointer + ": " + e.Message
		p.Errors.Validate.Add(1)
	}
	msg.Validation = model.Validation{Valid: result.Valid, Errors: errs}
}

// messageToDoc converts the canonical fields the schema set cares about into
// the map[string]any shape schema.Validator expects.
func messageToDoc(msg *model.Message) map[string]any {
	raw, _ := json.Marshal(msg)
	var doc map[string]any
	_ = json.Unmarshal(raw, &doc)
	doc["source_type"] = string(msg.SourceType)
	doc["category"] = string(msg.Category)
	return doc
}

var militaryCallsignPrefixes = []string{"IRON", "GOTO", "GORDO", "TITAN", "SLICK"}

// isMilitaryIndicative applies the same cheap textual check the HFGCS
// Tracker uses internally so the processor only feeds plausible candidates,
// not every civilian message.
func isMilitaryIndicative(msg *model.Message) bool {
	if msg.Category == model.CategoryHFGCS {
		return true
	}
	if msg.Identity == nil {
		return false
	}
	flight := strings.ToUpper(msg.Identity.Flight)
	for _, prefix := range militaryCallsignPrefixes {
		if strings.HasPrefix(flight, prefix) {
			return true
		}
	}
	return false
}
