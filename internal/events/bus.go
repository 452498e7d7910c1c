/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import (
	"sync"
	"sync/atomic"
)

// EventType enumerates event categories.
type EventType string

const (
	EventNowPlaying     EventType = "now_playing"
	EventSegmentReady   EventType = "segment.ready"
	EventSegmentFailed  EventType = "segment.failed"
	EventSegmentLate    EventType = "segment.late"
	EventCrossfade      EventType = "playback.crossfade"
	EventPlaybackState  EventType = "playback.state"
	EventPlaybackHalted EventType = "playback.halted"
	EventCatalogUpdated EventType = "catalog.updated"
	EventNewsBreak      EventType = "news.break"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub. Slow subscribers drop
// events rather than blocking publishers.
type Bus struct {
	mu      sync.RWMutex
	subs    map[EventType][]Subscriber
	dropped atomic.Uint64
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// defaultBuffer is the per-subscriber channel capacity used by Subscribe.
const defaultBuffer = 8

// Subscribe registers a subscriber for event type with the default buffer.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	return b.SubscribeBuffered(eventType, defaultBuffer)
}

// SubscribeBuffered registers a subscriber whose channel holds up to size
// undelivered payloads. Consumers that lag behind a burst, like websocket
// fan-out, ask for a deeper buffer than the default.
func (b *Bus) SubscribeBuffered(eventType EventType, size int) Subscriber {
	if size < 1 {
		size = 1
	}
	ch := make(Subscriber, size)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers. A subscriber with a full buffer
// misses the payload; Dropped counts those misses.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped reports how many payloads were discarded because a subscriber's
// buffer was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			b.subs[eventType] = append(subs[:i], subs[i+1:]...)
			close(sub)
			return
		}
	}
}
