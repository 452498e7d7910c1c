/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/models"
)

func testCatalog(t *testing.T, n int) *Catalog {
	t.Helper()
	c := New(t.TempDir(), nil, nil, zerolog.Nop())
	tracks := make([]models.Track, n)
	for i := range tracks {
		tracks[i] = models.Track{
			ID:     fmt.Sprintf("track-%d", i),
			Title:  fmt.Sprintf("Title %d", i),
			Artist: "Artist",
			Path:   fmt.Sprintf("/music/%d.mp3", i),
		}
	}
	c.setTracks(tracks)
	return c
}

func TestSelectorEmptyCatalog(t *testing.T) {
	c := New(t.TempDir(), nil, nil, zerolog.Nop())
	s := NewSelector(c)

	if _, err := s.Next(); err != ErrEmptyCatalog {
		t.Fatalf("Next() error = %v, want ErrEmptyCatalog", err)
	}
}

func TestSelectorNoRepeatWithinCycle(t *testing.T) {
	const size = 12
	s := NewSelector(testCatalog(t, size))

	seen := make(map[string]int)
	for i := 0; i < size; i++ {
		track, err := s.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		seen[track.ID]++
	}

	// The first `size` draws are exactly the catalog, once each.
	if len(seen) != size {
		t.Fatalf("drew %d distinct tracks, want %d", len(seen), size)
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("track %s drawn %d times within one cycle", id, n)
		}
	}

	// The (size+1)-th draw is the first allowed repeat.
	track, err := s.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if seen[track.ID] != 1 {
		t.Errorf("draw after cycle reset returned unknown track %s", track.ID)
	}
}

func TestSelectorSingleTrackCatalog(t *testing.T) {
	s := NewSelector(testCatalog(t, 1))

	for i := 0; i < 5; i++ {
		track, err := s.Next()
		if err != nil {
			t.Fatalf("Next() call %d error = %v", i, err)
		}
		if track.ID != "track-0" {
			t.Fatalf("Next() = %s, want track-0", track.ID)
		}
	}
}

func TestSelectorTwoTrackCycles(t *testing.T) {
	// Five consecutive draws from {A, B} must yield 2-3 of each before any
	// third occurrence of either, consistent with cycle resets.
	s := NewSelector(testCatalog(t, 2))

	counts := make(map[string]int)
	for i := 0; i < 5; i++ {
		track, err := s.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		counts[track.ID]++
		for id, n := range counts {
			if n > 3 {
				t.Fatalf("track %s drawn %d times in 5 draws", id, n)
			}
		}
	}
	for id, n := range counts {
		if n < 2 {
			t.Errorf("track %s drawn %d times, want 2-3", id, n)
		}
	}
}

func TestSelectorCycleRemaining(t *testing.T) {
	s := NewSelector(testCatalog(t, 4))

	if got := s.CycleRemaining(); got != 4 {
		t.Fatalf("CycleRemaining() = %d, want 4", got)
	}
	if _, err := s.Next(); err != nil {
		t.Fatal(err)
	}
	if got := s.CycleRemaining(); got != 3 {
		t.Fatalf("CycleRemaining() after one draw = %d, want 3", got)
	}
}

func TestSelectorPicksUpRescannedTracks(t *testing.T) {
	c := testCatalog(t, 2)
	s := NewSelector(c)

	if _, err := s.Next(); err != nil {
		t.Fatal(err)
	}

	// A rescan adds a third track mid-cycle; it joins the pool.
	tracks := c.Tracks()
	tracks = append(tracks, models.Track{ID: "track-new", Title: "New", Path: "/music/new.mp3"})
	c.setTracks(tracks)

	seen := make(map[string]bool)
	for i := 0; i < 2; i++ {
		track, err := s.Next()
		if err != nil {
			t.Fatal(err)
		}
		if seen[track.ID] {
			t.Fatalf("track %s repeated before cycle end", track.ID)
		}
		seen[track.ID] = true
	}
}
