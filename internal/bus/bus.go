// Package bus implements the typed subscriber bus (C12): a topic-based
// pub-sub fan-out with bounded per-subscriber queues and drop-oldest
// backpressure, modeled on the ingest event bus pattern.
package bus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Topic names published by Processor, Trackers, Recorder, and Aggregator.
const (
	TopicMessage               = "message"
	TopicADSBBatch             = "adsb_batch"
	TopicHFGCSAircraft         = "hfgcs_aircraft"
	TopicEAMDetected           = "eam_detected"
	TopicTranscriptionComplete = "transcription_complete"
	TopicRecordingComplete     = "recording_complete"
	TopicStatsUpdated          = "stats_updated"
	TopicSourceStatus          = "source_status"
)

// DefaultQueueSize is the default per-subscriber bounded channel capacity.
const DefaultQueueSize = 1024

// Event is one published item: a topic tag plus an opaque payload, the
// concrete type of which is determined by Topic (e.g. *model.Message for
// TopicMessage, *model.EAMMessage for TopicEAMDetected).
type Event struct {
	Topic     string
	Payload   any
	Timestamp time.Time
}

type subscriber struct {
	id     uint64
	ch     chan Event
	topics map[string]struct{} // empty set == all topics
}

// Bus fans out published events to all matching subscribers without
// blocking the publisher: a full subscriber queue discards its oldest
// queued event to make room and increments the bus-wide drop counter
// rather than stalling Publish.
type Bus struct {
	log zerolog.Logger

	mu          sync.RWMutex
	subscribers map[uint64]*subscriber
	nextID      uint64

	queueSize int
	dropped   atomic.Uint64
}

// New constructs a Bus. queueSize <= 0 uses DefaultQueueSize.
func New(log zerolog.Logger, queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Bus{
		log:         log.With().Str("component", "bus").Logger(),
		subscribers: make(map[uint64]*subscriber),
		queueSize:   queueSize,
	}
}

// Subscribe registers a new subscriber for the given topics (empty means
// all topics) and returns a receive-only channel plus a cancel function.
func (b *Bus) Subscribe(topics ...string) (<-chan Event, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	set := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		set[t] = struct{}{}
	}
	sub := &subscriber{id: id, ch: make(chan Event, b.queueSize), topics: set}
	b.subscribers[id] = sub
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if s, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(s.ch)
		}
		b.mu.Unlock()
	}
	return sub.ch, cancel
}

// Publish delivers an event to every subscriber whose topic set matches (or
// is empty, meaning "all topics"). Publish never blocks: a full subscriber
// queue drops its oldest queued event.
func (b *Bus) Publish(topic string, payload any) {
	evt := Event{Topic: topic, Payload: payload, Timestamp: time.Now().UTC()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		if len(sub.topics) > 0 {
			if _, ok := sub.topics[topic]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- evt:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- evt:
			default:
			}
			b.dropped.Add(1)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped returns the cumulative count of events dropped to backpressure
// across all subscribers.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
