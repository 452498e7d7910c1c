/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package announcer generates spoken-word copy for the station: track
// introductions and news breaks, produced by an Ollama-compatible LLM
// endpoint. The playback core depends only on the Generator interface.
package announcer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrEmptyResponse is returned when the model produced no usable text.
var ErrEmptyResponse = errors.New("announcer: empty response from model")

// Generator produces a short introduction for a track.
type Generator interface {
	GenerateIntroduction(ctx context.Context, title, artist string) (string, error)
}

// Client talks to an Ollama-compatible /api/generate endpoint.
type Client struct {
	baseURL     string
	model       string
	stationName string
	httpClient  *http.Client
	logger      zerolog.Logger
}

// NewClient creates an announcer client. The timeout bounds each generation
// call end to end.
func NewClient(baseURL, model, stationName string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		stationName: stationName,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger.With().Str("component", "announcer").Logger(),
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// GenerateIntroduction returns a roughly 40-word DJ introduction for a track.
func (c *Client) GenerateIntroduction(ctx context.Context, title, artist string) (string, error) {
	prompt := fmt.Sprintf(
		`You are a professional radio DJ. Create an engaging introduction for the song %q by %s that is around 40 words. Try to incorporate any interesting facts known about the band or song. At the end of the intro mention the station's name: %s.

Generate approximately 40 words:`,
		title, artist, c.stationName,
	)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	intro := clampWords(cleanResponse(text), 70, 40)
	if intro == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Debug().Str("title", title).Int("words", len(strings.Fields(intro))).Msg("introduction generated")
	return intro, nil
}

// generate performs one completion call.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": 0.7,
			"num_predict": 128,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("text generation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("text generation status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return strings.TrimSpace(result.Response), nil
}

// cleanResponse strips quote wrapping and chatty prefixes like
// "Here's a 40-word introduction:".
func cleanResponse(response string) string {
	cleaned := strings.TrimSpace(response)
	if len(cleaned) >= 2 && strings.HasPrefix(cleaned, `"`) && strings.HasSuffix(cleaned, `"`) {
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	if idx := strings.Index(cleaned, ":"); idx > 0 && idx < 50 {
		cleaned = strings.TrimSpace(cleaned[idx+1:])
	}
	return cleaned
}

// clampWords trims text to `keep` words when it exceeds `limit` words.
func clampWords(text string, limit, keep int) string {
	words := strings.Fields(text)
	if len(words) > limit {
		words = words[:keep]
		return strings.Join(words, " ")
	}
	return strings.Join(words, " ")
}
