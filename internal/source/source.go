// Package source implements the Source abstraction (C4), its concrete
// upstream feeds (C5), and the Source Manager lifecycle coordinator (C13).
package source

import (
	"context"
	"time"

	"github.com/airwave/airwave/internal/model"
)

// Stats is the common status snapshot every Source exposes.
type Stats struct {
	Connected        bool      `json:"connected"`
	TrackedEntities  int       `json:"tracked_entities"`
	LastUpdate       time.Time `json:"last_update"`
	UpdateIntervalMS int       `json:"update_interval_ms"`
	MessageCount     int64     `json:"message_count"`
	LastError        string    `json:"last_error,omitempty"`
}

// Source is the common lifecycle contract for any upstream feed, whether
// poll-based, push-based, or audio-based.
type Source interface {
	// Name identifies the source instance for logging and restart lookups.
	Name() string
	// Start opens resources and schedules work; returns once the first
	// connection attempt has been dispatched, not once data has arrived.
	Start(ctx context.Context) error
	// Stop cancels in-flight work and releases resources. Returns once the
	// last in-flight callback has completed, within 5s.
	Stop(ctx context.Context) error
	// Stats returns a point-in-time status snapshot.
	Stats() Stats
}

// Emitter is how a Source hands normalized messages to the Message
// Processor. Implementations must not block for long: the Supervisor's
// emitter runs the processor synchronously on the calling source's
// goroutine, with no queue in between.
type Emitter func(msg *model.Message)
