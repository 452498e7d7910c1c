/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audio

import (
	"testing"
	"time"
)

func TestCrossfadeOutputLength(t *testing.T) {
	rate := 1000
	tests := []struct {
		name       string
		aFrames    int
		bFrames    int
		duration   time.Duration
		wantFrames int
	}{
		{name: "normal overlap", aFrames: 5000, bFrames: 4000, duration: time.Second, wantFrames: 8000},
		{name: "zero duration is a hard cut", aFrames: 1000, bFrames: 1000, duration: 0, wantFrames: 2000},
		{name: "duration clamped to shorter stream", aFrames: 5000, bFrames: 500, duration: 2 * time.Second, wantFrames: 5000},
		{name: "full overlap of equal streams", aFrames: 800, bFrames: 800, duration: time.Second, wantFrames: 800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := constantBuffer(rate, 2, tt.aFrames, 8000)
			b := constantBuffer(rate, 2, tt.bFrames, 8000)

			out, err := Crossfade(a, b, tt.duration)
			if err != nil {
				t.Fatalf("Crossfade() error = %v", err)
			}
			if got := out.Frames(); got != tt.wantFrames {
				t.Errorf("frames = %d, want %d", got, tt.wantFrames)
			}
		})
	}
}

func TestCrossfadeGainsSumToUnity(t *testing.T) {
	// With both inputs at the same constant level, a linear law keeps the
	// overlap at that level: the two gains always sum to one.
	rate := 1000
	a := constantBuffer(rate, 2, 2000, 16000)
	b := constantBuffer(rate, 2, 2000, 16000)

	out, err := Crossfade(a, b, time.Second)
	if err != nil {
		t.Fatalf("Crossfade() error = %v", err)
	}
	for i, s := range out.Samples {
		if s > 16000 || s < 15999 {
			t.Fatalf("sample %d = %d, overlap must stay at input level", i, s)
		}
	}
}

func TestCrossfadeRampDirection(t *testing.T) {
	rate := 1000
	a := constantBuffer(rate, 1, 2000, 20000)
	b := NewBuffer(rate, 1, 2000) // silent incoming

	out, err := Crossfade(a, b, time.Second)
	if err != nil {
		t.Fatalf("Crossfade() error = %v", err)
	}

	// Head is untouched outgoing audio.
	if out.Samples[0] != 20000 {
		t.Errorf("head sample = %d, want 20000", out.Samples[0])
	}
	// The overlap decays monotonically toward the silent stream.
	start := 1000
	for i := start + 1; i < 2000; i++ {
		if out.Samples[i] > out.Samples[i-1] {
			t.Fatalf("overlap not monotonic at frame %d", i)
		}
	}
	// Tail is the incoming stream alone.
	if out.Samples[out.Frames()-1] != 0 {
		t.Errorf("tail sample = %d, want 0", out.Samples[out.Frames()-1])
	}
}

func TestCrossfadeFormatMismatch(t *testing.T) {
	a := constantBuffer(44100, 2, 100, 0)
	b := constantBuffer(48000, 2, 100, 0)
	if _, err := Crossfade(a, b, time.Second); err != ErrFormatMismatch {
		t.Errorf("error = %v, want ErrFormatMismatch", err)
	}
}

func TestCrossfadeOverlapMatchesBlendFrames(t *testing.T) {
	// The overlap region is built frame by frame from BlendFrames, so the
	// two must agree exactly at every ramp position.
	rate := 1000
	a := constantBuffer(rate, 2, 1500, 12000)
	b := constantBuffer(rate, 2, 1500, -9000)

	out, err := Crossfade(a, b, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("Crossfade() error = %v", err)
	}

	overlap := 500
	head := 1500 - overlap
	want := make([]int16, 2)
	for i := 0; i < overlap; i++ {
		gain := float64(i) / float64(overlap)
		BlendFrames(a.Samples[(head+i)*2:(head+i+1)*2], b.Samples[i*2:(i+1)*2], want, gain)
		for c := 0; c < 2; c++ {
			if got := out.Samples[(head+i)*2+c]; got != want[c] {
				t.Fatalf("frame %d ch %d = %d, want %d", i, c, got, want[c])
			}
		}
	}
}

func TestBlendFrames(t *testing.T) {
	outgoing := []int16{1000, 1000, 1000, 1000}
	incoming := []int16{-1000, -1000, -1000, -1000}
	dst := make([]int16, 4)

	BlendFrames(outgoing, incoming, dst, 0)
	if dst[0] != 1000 {
		t.Errorf("progress 0: %d, want all outgoing", dst[0])
	}
	BlendFrames(outgoing, incoming, dst, 1)
	if dst[0] != -1000 {
		t.Errorf("progress 1: %d, want all incoming", dst[0])
	}
	BlendFrames(outgoing, incoming, dst, 0.5)
	if dst[0] != 0 {
		t.Errorf("progress 0.5: %d, want 0", dst[0])
	}
}
