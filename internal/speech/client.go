/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package speech turns announcement text into PCM audio via an HTTP
// text-to-speech service that answers with WAV.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/audio"
)

// ErrUnsupportedFormat is returned when the service answers with audio the
// station cannot carry without resampling.
var ErrUnsupportedFormat = errors.New("speech: unsupported audio format")

// Synthesizer renders text to a PCM buffer in the station's wire format.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (*audio.Buffer, error)
}

// Client is an HTTP text-to-speech client. The service takes JSON
// {text, voice} and answers with a RIFF/WAV body.
type Client struct {
	baseURL    string
	sampleRate int
	channels   int
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a speech client targeting the station's sample rate and
// channel count.
func NewClient(baseURL string, sampleRate, channels int, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		sampleRate: sampleRate,
		channels:   channels,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "speech").Logger(),
	}
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// Synthesize renders text with the given voice and returns station-format
// PCM. Channel count is adapted locally; a sample-rate mismatch is an error.
func (c *Client) Synthesize(ctx context.Context, text, voice string) (*audio.Buffer, error) {
	body, err := json.Marshal(synthesizeRequest{Text: text, Voice: voice})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("speech synthesis status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	wavData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	buf, err := c.decodeWAV(wavData)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("voice", voice).
		Dur("duration", buf.Duration()).
		Msg("speech synthesized")
	return buf, nil
}

// decodeWAV parses a WAV body into the station format.
func (c *Client) decodeWAV(data []byte) (*audio.Buffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrUnsupportedFormat)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if int(dec.BitDepth) != 16 {
		return nil, fmt.Errorf("%w: %d-bit samples, want 16", ErrUnsupportedFormat, dec.BitDepth)
	}
	return c.fromIntBuffer(pcm)
}

// fromIntBuffer converts a decoded PCM buffer into the station format.
func (c *Client) fromIntBuffer(pcm *goaudio.IntBuffer) (*audio.Buffer, error) {
	if pcm.Format == nil {
		return nil, fmt.Errorf("%w: missing format chunk", ErrUnsupportedFormat)
	}
	if pcm.Format.SampleRate != c.sampleRate {
		return nil, fmt.Errorf("%w: sample rate %d, want %d", ErrUnsupportedFormat, pcm.Format.SampleRate, c.sampleRate)
	}

	samples := make([]int16, len(pcm.Data))
	for i, s := range pcm.Data {
		samples[i] = int16(s)
	}

	buf := &audio.Buffer{Samples: samples, SampleRate: c.sampleRate, Channels: pcm.Format.NumChannels}
	return convertChannels(buf, c.channels)
}

// convertChannels adapts mono to stereo (duplicate) and stereo to mono
// (average). Other layouts are rejected.
func convertChannels(buf *audio.Buffer, want int) (*audio.Buffer, error) {
	switch {
	case buf.Channels == want:
		return buf, nil

	case buf.Channels == 1 && want == 2:
		out := audio.NewBuffer(buf.SampleRate, 2, len(buf.Samples))
		for i, s := range buf.Samples {
			out.Samples[2*i] = s
			out.Samples[2*i+1] = s
		}
		return out, nil

	case buf.Channels == 2 && want == 1:
		frames := len(buf.Samples) / 2
		out := audio.NewBuffer(buf.SampleRate, 1, frames)
		for i := 0; i < frames; i++ {
			l := int(buf.Samples[2*i])
			r := int(buf.Samples[2*i+1])
			out.Samples[i] = int16((l + r) / 2)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: %d channels, want %d", ErrUnsupportedFormat, buf.Channels, want)
	}
}
