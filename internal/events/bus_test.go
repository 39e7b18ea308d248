package events

import (
	"sync"
	"testing"
	"time"
)

// TestBasicPublishSubscribe verifies basic functionality.
func TestBasicPublishSubscribe(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch := make(chan Event, 10)
	if err := bus.Subscribe("test", ch); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	bus.Publish(Event{Kind: KindStatus, Data: "connected"})

	select {
	case received := <-ch:
		if received.Kind != KindStatus {
			t.Errorf("Expected kind %v, got %v", KindStatus, received.Kind)
		}
		if received.Seq == 0 {
			t.Error("Expected bus-assigned sequence, got 0")
		}
		if received.At.IsZero() {
			t.Error("Expected bus-assigned timestamp, got zero")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for event")
	}
}

// TestNonBlockingPublish verifies Publish never blocks.
func TestNonBlockingPublish(t *testing.T) {
	bus := New()
	defer bus.Close()

	// Subscribe with buffer=1
	ch := make(chan Event, 1)
	bus.Subscribe("slow", ch)

	done := make(chan bool)
	go func() {
		bus.Publish(Event{Kind: KindFrame}) // Should succeed
		bus.Publish(Event{Kind: KindFrame}) // Should drop (buffer full)
		done <- true
	}()

	select {
	case <-done:
		// Success - Publish completed without blocking
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Publish blocked (should be non-blocking)")
	}

	stats, err := bus.Stats("slow")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Sent != 1 {
		t.Errorf("Expected 1 sent, got %d", stats.Sent)
	}
	if stats.Dropped != 1 {
		t.Errorf("Expected 1 dropped, got %d", stats.Dropped)
	}
}

// TestStatsConservation verifies sent + dropped equals published per subscriber.
func TestStatsConservation(t *testing.T) {
	bus := New()
	defer bus.Close()

	chBig := make(chan Event, 10)
	chSmall := make(chan Event, 1)
	bus.Subscribe("big", chBig)
	bus.Subscribe("small", chSmall)

	for i := 0; i < 5; i++ {
		bus.Publish(Event{Kind: KindFrame})
	}

	if got := bus.TotalPublished(); got != 5 {
		t.Errorf("Expected 5 published, got %d", got)
	}

	for _, id := range []string{"big", "small"} {
		stats, err := bus.Stats(id)
		if err != nil {
			t.Fatalf("Stats(%q) failed: %v", id, err)
		}
		if stats.Sent+stats.Dropped != 5 {
			t.Errorf("Subscriber %q: %d sent + %d dropped != 5 published",
				id, stats.Sent, stats.Dropped)
		}
	}

	bigStats, _ := bus.Stats("big")
	if bigStats.Sent != 5 {
		t.Errorf("Subscriber big expected 5 sent, got %d", bigStats.Sent)
	}
}

// TestSubscribeErrors verifies subscription error cases.
func TestSubscribeErrors(t *testing.T) {
	bus := New()

	if err := bus.Subscribe("nil", nil); err != ErrNilChannel {
		t.Errorf("Expected ErrNilChannel, got %v", err)
	}

	ch := make(chan Event, 1)
	if err := bus.Subscribe("dup", ch); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := bus.Subscribe("dup", ch); err != ErrSubscriberExists {
		t.Errorf("Expected ErrSubscriberExists, got %v", err)
	}

	if err := bus.Unsubscribe("missing"); err != ErrSubscriberNotFound {
		t.Errorf("Expected ErrSubscriberNotFound, got %v", err)
	}

	bus.Close()
	if err := bus.Subscribe("late", ch); err != ErrBusClosed {
		t.Errorf("Expected ErrBusClosed, got %v", err)
	}
}

// TestCloseIdempotent verifies Close and post-Close Publish are safe.
func TestCloseIdempotent(t *testing.T) {
	bus := New()
	ch := make(chan Event, 1)
	bus.Subscribe("a", ch)

	bus.Close()
	bus.Close()
	bus.Publish(Event{Kind: KindFrame}) // Must not panic

	select {
	case ev := <-ch:
		t.Errorf("Received event after close: %+v", ev)
	default:
	}
}

// TestConcurrentPublish verifies thread-safety under concurrent publishers.
func TestConcurrentPublish(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch := make(chan Event, 1000)
	bus.Subscribe("sink", ch)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				bus.Publish(Event{Kind: KindFrame})
			}
		}()
	}
	wg.Wait()

	if got := bus.TotalPublished(); got != 500 {
		t.Errorf("Expected 500 published, got %d", got)
	}
	stats, _ := bus.Stats("sink")
	if stats.Sent != 500 {
		t.Errorf("Expected 500 sent (buffer large enough), got %d", stats.Sent)
	}
}
