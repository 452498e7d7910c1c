/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package audio implements the PCM mixing primitives for the playback
// pipeline: buffers of interleaved S16LE samples, fade envelopes, bed
// fitting, voice-over mixing, and crossfades. All operations are pure and
// deterministic; crossfade/mix gains are computed per frame so channels of
// one frame always share the same gain.
package audio

import (
	"errors"
	"time"
)

// ErrFormatMismatch is returned when buffers with different sample rates or
// channel counts are mixed without a resampling policy.
var ErrFormatMismatch = errors.New("audio: sample rate or channel count mismatch")

// Buffer is a raw PCM sample sequence: interleaved signed 16-bit samples at
// a fixed sample rate and channel count.
type Buffer struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// NewBuffer allocates a silent buffer holding the given number of frames.
func NewBuffer(sampleRate, channels, frames int) *Buffer {
	if frames < 0 {
		frames = 0
	}
	return &Buffer{
		Samples:    make([]int16, frames*channels),
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

// Silence returns a silent buffer of the given duration.
func Silence(sampleRate, channels int, d time.Duration) *Buffer {
	return NewBuffer(sampleRate, channels, framesFor(d, sampleRate))
}

// Frames returns the number of sample frames in the buffer.
func (b *Buffer) Frames() int {
	if b == nil || b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback duration of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate == 0 {
		return 0
	}
	return durationFor(b.Frames(), b.SampleRate)
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	samples := make([]int16, len(b.Samples))
	copy(samples, b.Samples)
	return &Buffer{Samples: samples, SampleRate: b.SampleRate, Channels: b.Channels}
}

// Slice returns a view of the frame range [from, to). Bounds are clamped.
func (b *Buffer) Slice(from, to int) *Buffer {
	frames := b.Frames()
	if from < 0 {
		from = 0
	}
	if to > frames {
		to = frames
	}
	if from > to {
		from = to
	}
	return &Buffer{
		Samples:    b.Samples[from*b.Channels : to*b.Channels],
		SampleRate: b.SampleRate,
		Channels:   b.Channels,
	}
}

// compatible reports whether two buffers can be mixed sample-wise.
func (b *Buffer) compatible(other *Buffer) bool {
	return b.SampleRate == other.SampleRate && b.Channels == other.Channels
}

// framesFor converts a duration to a frame count at the given sample rate.
func framesFor(d time.Duration, sampleRate int) int {
	if d <= 0 {
		return 0
	}
	return int(int64(d) * int64(sampleRate) / int64(time.Second))
}

// durationFor converts a frame count to its playback duration.
func durationFor(frames, sampleRate int) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

// clip converts a float sample to int16, clamping to the S16 range.
func clip(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
