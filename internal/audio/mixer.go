/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audio

import "time"

// ApplyFade returns a copy of buf with a linear gain ramp 0→1 over fadeIn at
// the start and 1→0 over fadeOut at the end. If the two ramps would overlap,
// each is clamped to half the buffer so they never do.
func ApplyFade(buf *Buffer, fadeIn, fadeOut time.Duration) *Buffer {
	out := buf.Clone()
	frames := out.Frames()
	if frames == 0 {
		return out
	}

	inFrames := framesFor(fadeIn, buf.SampleRate)
	outFrames := framesFor(fadeOut, buf.SampleRate)
	if inFrames+outFrames > frames {
		if inFrames > frames/2 {
			inFrames = frames / 2
		}
		if outFrames > frames/2 {
			outFrames = frames / 2
		}
	}

	ch := out.Channels
	for i := 0; i < inFrames; i++ {
		gain := float64(i) / float64(inFrames)
		for c := 0; c < ch; c++ {
			idx := i*ch + c
			out.Samples[idx] = clip(float64(out.Samples[idx]) * gain)
		}
	}
	for i := 0; i < outFrames; i++ {
		gain := float64(i+1) / float64(outFrames)
		for c := 0; c < ch; c++ {
			idx := (frames-1-i)*ch + c
			out.Samples[idx] = clip(float64(out.Samples[idx]) * gain)
		}
	}
	return out
}

// FitToDuration returns a buffer of exactly target duration built from buf.
// A shorter buffer is looped with a seamFade crossfade at each loop seam so
// the join is inaudible; a longer buffer is truncated with a fadeOut ramp
// over its tail.
func FitToDuration(buf *Buffer, target, seamFade, fadeOut time.Duration) *Buffer {
	targetFrames := framesFor(target, buf.SampleRate)
	srcFrames := buf.Frames()

	if srcFrames == 0 || targetFrames == 0 {
		return NewBuffer(buf.SampleRate, buf.Channels, targetFrames)
	}

	if srcFrames >= targetFrames {
		return ApplyFade(buf.Slice(0, targetFrames), 0, fadeOut)
	}

	seamFrames := framesFor(seamFade, buf.SampleRate)
	if seamFrames >= srcFrames {
		seamFrames = srcFrames / 2
	}

	out := NewBuffer(buf.SampleRate, buf.Channels, targetFrames)
	copy(out.Samples, buf.Samples)
	written := srcFrames

	ch := buf.Channels
	for written < targetFrames {
		// Blend the tail of what has been written with the head of the
		// next iteration, then continue with the remainder.
		for i := 0; i < seamFrames && written-seamFrames+i < targetFrames; i++ {
			gain := float64(i) / float64(seamFrames)
			for c := 0; c < ch; c++ {
				dst := (written - seamFrames + i) * ch
				tail := float64(out.Samples[dst+c]) * (1 - gain)
				head := float64(buf.Samples[i*ch+c]) * gain
				out.Samples[dst+c] = clip(tail + head)
			}
		}
		n := copyFrames(out, written, buf, seamFrames, srcFrames)
		written += n
		if n == 0 {
			break
		}
	}
	return out
}

// copyFrames copies src frames [from, to) into dst starting at frame offset,
// clamped to dst capacity. Returns the number of frames copied.
func copyFrames(dst *Buffer, offset int, src *Buffer, from, to int) int {
	avail := dst.Frames() - offset
	n := to - from
	if n > avail {
		n = avail
	}
	if n <= 0 {
		return 0
	}
	ch := dst.Channels
	copy(dst.Samples[offset*ch:(offset+n)*ch], src.Samples[from*ch:(from+n)*ch])
	return n
}

// MixAtVolume sums foreground with background scaled by gain. The output has
// the foreground's length; excess background is ignored and a short
// background leaves the foreground tail unmixed. Gain must be in (0, 1].
func MixAtVolume(foreground, background *Buffer, gain float64) (*Buffer, error) {
	if !foreground.compatible(background) {
		return nil, ErrFormatMismatch
	}

	out := foreground.Clone()
	n := len(background.Samples)
	if n > len(out.Samples) {
		n = len(out.Samples)
	}
	for i := 0; i < n; i++ {
		out.Samples[i] = clip(float64(foreground.Samples[i]) + gain*float64(background.Samples[i]))
	}
	return out, nil
}
