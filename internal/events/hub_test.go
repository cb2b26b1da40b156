package events

import (
	"testing"
	"time"
)

func TestPublishFansOutToSubscriber(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	ch, unsubscribe := hub.Subscribe(4)
	t.Cleanup(unsubscribe)

	hub.Publish(NewEvent(TypeScheduleUpdated, map[string]any{"schedule": "s1"}))
	hub.Publish(NewEvent(TypeTurnStarted, map[string]any{"turn": "t1"}))

	first := <-ch
	second := <-ch

	if first.Type != TypeScheduleUpdated {
		t.Fatalf("first.Type = %q, want %q", first.Type, TypeScheduleUpdated)
	}
	if second.Type != TypeTurnStarted {
		t.Fatalf("second.Type = %q, want %q", second.Type, TypeTurnStarted)
	}
}

func TestNewEventStampsTimestamp(t *testing.T) {
	t.Parallel()

	evt := NewEvent(TypeTurnCompleted, nil)
	if evt.Timestamp == "" {
		t.Fatal("event timestamp should be set")
	}
	if _, err := time.Parse(time.RFC3339, evt.Timestamp); err != nil {
		t.Fatalf("timestamp parse error: %v", err)
	}
}

func TestPublishDropsWhenSubscriberSlow(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	_, unsubscribe := hub.Subscribe(1)
	t.Cleanup(unsubscribe)

	// Buffer of 1: second publish must not block even though nobody reads.
	done := make(chan struct{})
	go func() {
		hub.Publish(NewEvent(TypeScheduleUpdated, nil))
		hub.Publish(NewEvent(TypeScheduleUpdated, nil))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	ch, unsubscribe := hub.Subscribe(1)
	unsubscribe()

	if hub.SubscriberCount() != 0 {
		t.Fatalf("SubscriberCount() = %d, want 0", hub.SubscriberCount())
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("channel was not closed")
	}
}
