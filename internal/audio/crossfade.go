/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audio

import "time"

// Crossfade joins a and b into one stream: a plays alone until the overlap
// region, then a ramps 1→0 while b ramps 0→1 over the overlap, then b plays
// alone. The gain law is linear, so the two gains sum to exactly one at
// every instant and the blend cannot clip by construction.
//
// Policy: a duration longer than either input is clamped to the shorter
// input, producing a full-overlap crossfade instead of an error.
func Crossfade(a, b *Buffer, duration time.Duration) (*Buffer, error) {
	if !a.compatible(b) {
		return nil, ErrFormatMismatch
	}

	aFrames := a.Frames()
	bFrames := b.Frames()
	overlap := framesFor(duration, a.SampleRate)
	if overlap > aFrames {
		overlap = aFrames
	}
	if overlap > bFrames {
		overlap = bFrames
	}

	out := NewBuffer(a.SampleRate, a.Channels, aFrames+bFrames-overlap)
	ch := a.Channels

	head := aFrames - overlap
	copy(out.Samples[:head*ch], a.Samples[:head*ch])

	for i := 0; i < overlap; i++ {
		gain := float64(i) / float64(overlap)
		at := (head + i) * ch
		BlendFrames(a.Samples[at:at+ch], b.Samples[i*ch:(i+1)*ch], out.Samples[at:at+ch], gain)
	}

	copy(out.Samples[aFrames*ch:], b.Samples[overlap*ch:])
	return out, nil
}

// BlendFrames mixes one outgoing frame into one incoming frame at the given
// progress (0 = all outgoing, 1 = all incoming) using the same linear law as
// Crossfade. Both slices must be the same length.
func BlendFrames(outgoing, incoming, dst []int16, progress float64) {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	for i := range dst {
		out := float64(outgoing[i]) * (1 - progress)
		in := float64(incoming[i]) * progress
		dst[i] = clip(out + in)
	}
}
