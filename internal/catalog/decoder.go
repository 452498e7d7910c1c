/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/audio"
)

// Decoder shells out to ffmpeg to decode compressed audio into raw
// interleaved S16LE PCM at the pipeline's fixed rate and channel layout.
// Decoding external to the process keeps codecs out of the binary.
type Decoder struct {
	bin        string
	sampleRate int
	channels   int
	logger     zerolog.Logger
}

// NewDecoder creates a decoder targeting the given PCM format.
func NewDecoder(bin string, sampleRate, channels int, logger zerolog.Logger) *Decoder {
	return &Decoder{
		bin:        bin,
		sampleRate: sampleRate,
		channels:   channels,
		logger:     logger.With().Str("component", "decoder").Logger(),
	}
}

// Decode decodes an audio file to a PCM buffer. The whole track is held in
// memory, roughly 10 MB per minute at 44.1 kHz stereo; segment composition
// needs complete buffers for fitting and crossfading, so there is no
// frame-streaming path. The context cancels the decoder process.
func (d *Decoder) Decode(ctx context.Context, path string) (*audio.Buffer, error) {
	cmd := exec.CommandContext(ctx, d.bin,
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprint(d.sampleRate),
		"-ac", fmt.Sprint(d.channels),
		"-loglevel", "error",
		"pipe:1",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w: %s", path, err, bytes.TrimSpace(stderr.Bytes()))
	}

	// Drop a trailing odd byte so samples stay aligned.
	if len(out)%2 != 0 {
		out = out[:len(out)-1]
	}

	samples := make([]int16, len(out)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(out[i*2 : i*2+2]))
	}

	d.logger.Debug().Str("path", path).Int("samples", len(samples)).Msg("decoded")

	return &audio.Buffer{
		Samples:    samples,
		SampleRate: d.sampleRate,
		Channels:   d.channels,
	}, nil
}
