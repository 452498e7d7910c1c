/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"math/rand/v2"
	"sync"

	"github.com/friendsincode/skald_radio/internal/models"
)

// Selector draws tracks uniformly at random without repeating any track
// until the whole catalog has been played, then starts a new cycle. The
// played set and the remaining pool always partition the catalog; tracks
// added by a rescan join the current pool immediately.
type Selector struct {
	catalog *Catalog

	mu     sync.Mutex
	played map[string]bool
}

// NewSelector creates a selector over a catalog.
func NewSelector(catalog *Catalog) *Selector {
	return &Selector{
		catalog: catalog,
		played:  make(map[string]bool),
	}
}

// Next returns the next track to broadcast. Fails with ErrEmptyCatalog when
// the catalog has no tracks. A single-track catalog returns that track on
// every call.
func (s *Selector) Next() (models.Track, error) {
	tracks := s.catalog.Tracks()
	if len(tracks) == 0 {
		return models.Track{}, ErrEmptyCatalog
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pool := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if !s.played[t.ID] {
			pool = append(pool, t)
		}
	}

	// Cycle complete: reset and draw from the full catalog again.
	if len(pool) == 0 {
		s.played = make(map[string]bool)
		pool = tracks
	}

	track := pool[rand.IntN(len(pool))]
	s.played[track.ID] = true
	return track, nil
}

// CycleRemaining returns how many tracks are left in the current cycle.
func (s *Selector) CycleRemaining() int {
	tracks := s.catalog.Tracks()

	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := 0
	for _, t := range tracks {
		if !s.played[t.ID] {
			remaining++
		}
	}
	return remaining
}
