/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package announcer

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// feedCacheTTL bounds how often the RSS feed is refetched.
const feedCacheTTL = 30 * time.Minute

// ErrNoStories is returned when the feed yields no usable items.
var ErrNoStories = errors.New("announcer: news feed has no stories")

// NewsReader produces a spoken news-break script from an RSS feed: a short
// synopsis of one randomly chosen story plus a transition line back into
// the music.
type NewsReader struct {
	feedURL     string
	stationName string
	client      *Client
	httpClient  *http.Client
	logger      zerolog.Logger

	mu        sync.Mutex
	cached    []story
	fetchedAt time.Time
}

type story struct {
	Title       string
	Description string
}

// rssFeed matches the subset of RSS 2.0 we need.
type rssFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []struct {
			Title       string `xml:"title"`
			Description string `xml:"description"`
		} `xml:"item"`
	} `xml:"channel"`
}

// NewNewsReader creates a news reader backed by the given text generator.
func NewNewsReader(feedURL, stationName string, client *Client, timeout time.Duration, logger zerolog.Logger) *NewsReader {
	return &NewsReader{
		feedURL:     feedURL,
		stationName: stationName,
		client:      client,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger.With().Str("component", "news").Logger(),
	}
}

// Break returns a news-break script: headline synopsis followed by a
// transition line that hands back to the music.
func (n *NewsReader) Break(ctx context.Context) (string, error) {
	s, err := n.randomStory(ctx)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(
		`You are a radio news reader on %s. Summarize this news story in around 30 spoken words, neutral tone, no headline prefix:

Title: %s
Details: %s

Then add one short upbeat sentence transitioning back to the music.

Summary and transition:`,
		n.stationName, s.Title, s.Description,
	)

	text, err := n.client.generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	script := clampWords(cleanResponse(text), 90, 60)
	if script == "" {
		return "", ErrEmptyResponse
	}
	n.logger.Debug().Str("headline", s.Title).Msg("news break generated")
	return script, nil
}

// randomStory picks uniformly from the cached feed, refetching when stale.
func (n *NewsReader) randomStory(ctx context.Context) (story, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if time.Since(n.fetchedAt) > feedCacheTTL || len(n.cached) == 0 {
		stories, err := n.fetch(ctx)
		if err != nil {
			// Serve stale stories rather than failing the break outright.
			if len(n.cached) == 0 {
				return story{}, err
			}
			n.logger.Warn().Err(err).Msg("feed refresh failed, serving cached stories")
		} else {
			n.cached = stories
			n.fetchedAt = time.Now()
		}
	}

	if len(n.cached) == 0 {
		return story{}, ErrNoStories
	}
	return n.cached[rand.IntN(len(n.cached))], nil
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func (n *NewsReader) fetch(ctx context.Context) ([]story, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}

	var feed rssFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var stories []story
	for _, item := range feed.Channel.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		stories = append(stories, story{
			Title:       title,
			Description: strings.TrimSpace(tagPattern.ReplaceAllString(item.Description, "")),
		})
	}
	if len(stories) == 0 {
		return nil, ErrNoStories
	}

	n.logger.Debug().Int("stories", len(stories)).Msg("news feed refreshed")
	return stories, nil
}
