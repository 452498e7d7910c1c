/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile holds the station identity read from a YAML file. Everything in it
// has a usable default so a station can run without a profile at all.
//
// Canned intro lines may use the placeholders {title}, {artist}, and
// {station}.
type Profile struct {
	StationName   string   `yaml:"station_name"`
	Voices        []string `yaml:"voices"`
	FallbackVoice string   `yaml:"fallback_voice"`
	CannedIntros  []string `yaml:"canned_intros"`
	NewsFeedURL   string   `yaml:"news_feed_url"`
}

// DefaultProfile returns the built-in station profile.
func DefaultProfile() *Profile {
	return &Profile{
		StationName:   "Skald Radio",
		Voices:        []string{"en-US-aria", "en-US-davis", "en-US-guy", "en-US-jenny"},
		FallbackVoice: "en-US-aria",
		CannedIntros: []string{
			"Here's a fantastic track from {artist}. You're about to hear {title}. Turn it up and enjoy this one!",
			"Up next on {station}: {title} by {artist}.",
			"Keeping the music rolling with {title} by {artist}, right here on {station}.",
		},
	}
}

// LoadProfile reads a station profile from path, filling gaps with defaults.
// An empty path returns the defaults unchanged.
func LoadProfile(path string) (*Profile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var loaded Profile
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	if loaded.StationName != "" {
		profile.StationName = loaded.StationName
	}
	if len(loaded.Voices) > 0 {
		profile.Voices = loaded.Voices
	}
	if loaded.FallbackVoice != "" {
		profile.FallbackVoice = loaded.FallbackVoice
	}
	if len(loaded.CannedIntros) > 0 {
		profile.CannedIntros = loaded.CannedIntros
	}
	if loaded.NewsFeedURL != "" {
		profile.NewsFeedURL = loaded.NewsFeedURL
	}

	return profile, nil
}
