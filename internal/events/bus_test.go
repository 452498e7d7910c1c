/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventNowPlaying)

	bus.Publish(EventNowPlaying, Payload{"title": "Test Track"})

	select {
	case got := <-sub:
		if got["title"] != "Test Track" {
			t.Fatalf("payload = %v, want title=Test Track", got)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive payload")
	}
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventSegmentReady)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(EventSegmentReady, Payload{"n": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	_ = sub
}

func TestSubscribeBufferedCapacity(t *testing.T) {
	bus := NewBus()
	sub := bus.SubscribeBuffered(EventSegmentReady, 3)

	for i := 0; i < 10; i++ {
		bus.Publish(EventSegmentReady, Payload{"n": i})
	}

	if got := len(sub); got != 3 {
		t.Fatalf("buffered = %d payloads, want 3", got)
	}
	if got := bus.Dropped(); got != 7 {
		t.Fatalf("Dropped() = %d, want 7", got)
	}
	if first := <-sub; first["n"] != 0 {
		t.Fatalf("first payload n = %v, want 0", first["n"])
	}
}

func TestSubscribeBufferedMinimumSize(t *testing.T) {
	bus := NewBus()
	sub := bus.SubscribeBuffered(EventNowPlaying, 0)

	bus.Publish(EventNowPlaying, Payload{"title": "A"})

	select {
	case got := <-sub:
		if got["title"] != "A" {
			t.Fatalf("payload = %v, want title=A", got)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber with clamped buffer did not receive payload")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventCatalogUpdated)
	bus.Unsubscribe(EventCatalogUpdated, sub)

	if _, ok := <-sub; ok {
		t.Fatal("expected closed channel after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(EventCatalogUpdated, Payload{})
}
