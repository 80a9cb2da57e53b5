package bus

import (
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func discardLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestBusPublishSubscribe(t *testing.T) {
	t.Run("subscriber_receives_matching_topic", func(t *testing.T) {
		b := New(discardLogger(), 16)
		ch, cancel := b.Subscribe(TopicMessage)
		defer cancel()

		b.Publish(TopicMessage, "hello")

		select {
		case evt := <-ch:
			if evt.Topic != TopicMessage {
				t.Errorf("Topic = %q, want %q", evt.Topic, TopicMessage)
			}
			if evt.Payload != "hello" {
				t.Errorf("Payload = %v, want hello", evt.Payload)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	})

	t.Run("filtered_subscriber_misses_other_topics", func(t *testing.T) {
		b := New(discardLogger(), 16)
		ch, cancel := b.Subscribe(TopicEAMDetected)
		defer cancel()

		b.Publish(TopicMessage, "x")

		select {
		case evt := <-ch:
			t.Fatalf("should not receive event, got %+v", evt)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("unfiltered_subscriber_receives_all_topics", func(t *testing.T) {
		b := New(discardLogger(), 16)
		ch, cancel := b.Subscribe()
		defer cancel()

		b.Publish(TopicMessage, "x")
		b.Publish(TopicEAMDetected, "y")

		for i := 0; i < 2; i++ {
			select {
			case <-ch:
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for event")
			}
		}
	})

	t.Run("cancel_closes_channel", func(t *testing.T) {
		b := New(discardLogger(), 16)
		ch, cancel := b.Subscribe()
		cancel()

		_, ok := <-ch
		if ok {
			t.Fatal("channel should be closed after cancel")
		}
	})
}

func TestBusBackpressureDropsOldest(t *testing.T) {
	b := New(discardLogger(), 2)
	ch, cancel := b.Subscribe(TopicMessage)
	defer cancel()

	b.Publish(TopicMessage, 1)
	b.Publish(TopicMessage, 2)
	b.Publish(TopicMessage, 3) // queue full, oldest (1) dropped

	if got := b.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}

	// Drain the two buffered events; confirms publisher never blocked and
	// that the newest two survived.
	if evt := <-ch; evt.Payload != 2 {
		t.Errorf("first remaining Payload = %v, want 2", evt.Payload)
	}
	if evt := <-ch; evt.Payload != 3 {
		t.Errorf("second remaining Payload = %v, want 3", evt.Payload)
	}
	select {
	case evt := <-ch:
		t.Fatalf("unexpected third event: %+v", evt)
	default:
	}
}

func TestBusSubscriberCount(t *testing.T) {
	b := New(discardLogger(), 4)
	if b.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers initially")
	}
	_, cancel1 := b.Subscribe()
	_, cancel2 := b.Subscribe()
	if b.SubscriberCount() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", b.SubscriberCount())
	}
	cancel1()
	if b.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber after cancel, got %d", b.SubscriberCount())
	}
	cancel2()
}
