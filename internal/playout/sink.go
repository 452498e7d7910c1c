/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Sink consumes interleaved S16LE frames. WriteFrame may block to pace the
// caller at real time; a blocked write is how the pipeline self-clocks.
type Sink interface {
	WriteFrame(samples []int16) error
	Close() error
}

// DeviceSink plays frames on the default audio device.
type DeviceSink struct {
	player *oto.Player
	pw     *io.PipeWriter

	mu     sync.Mutex
	closed bool
	buf    []byte
}

// NewDeviceSink opens the audio device. The oto context is process-global;
// opening a second sink with a different format fails.
func NewDeviceSink(sampleRate, channels int) (*DeviceSink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   500 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	<-ready

	pr, pw := io.Pipe()
	player := ctx.NewPlayer(pr)
	player.Play()

	return &DeviceSink{player: player, pw: pw}, nil
}

// WriteFrame blocks until the device has drained enough of its buffer to
// accept the samples.
func (s *DeviceSink) WriteFrame(samples []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.ErrClosedPipe
	}

	if cap(s.buf) < len(samples)*2 {
		s.buf = make([]byte, len(samples)*2)
	}
	buf := s.buf[:len(samples)*2]
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(sample))
	}

	if _, err := s.pw.Write(buf); err != nil {
		return fmt.Errorf("write to device: %w", err)
	}
	return nil
}

// Close stops playback and releases the device.
func (s *DeviceSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.pw.Close()
	return s.player.Close()
}

// DiscardSink swallows frames, optionally pacing the caller at real time.
// Used for headless runs and tests.
type DiscardSink struct {
	sampleRate int
	channels   int
	realtime   bool

	mu       sync.Mutex
	frames   int64
	lastTick time.Time
}

// NewDiscardSink creates a sink that drops audio. With realtime set it
// sleeps so the pipeline still runs at broadcast speed.
func NewDiscardSink(sampleRate, channels int, realtime bool) *DiscardSink {
	return &DiscardSink{sampleRate: sampleRate, channels: channels, realtime: realtime}
}

func (s *DiscardSink) WriteFrame(samples []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(samples) / s.channels)
	s.frames += n

	if s.realtime {
		now := time.Now()
		if !s.lastTick.IsZero() {
			elapsed := now.Sub(s.lastTick)
			want := time.Duration(n) * time.Second / time.Duration(s.sampleRate)
			if want > elapsed {
				time.Sleep(want - elapsed)
			}
		}
		s.lastTick = time.Now()
	}
	return nil
}

func (s *DiscardSink) Close() error { return nil }

// FramesWritten reports the total frames consumed.
func (s *DiscardSink) FramesWritten() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}
