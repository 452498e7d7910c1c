/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DBBackend != DatabaseSQLite {
		t.Errorf("DBBackend = %s, want sqlite", cfg.DBBackend)
	}
	if cfg.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", cfg.SampleRate)
	}
	if cfg.CrossfadeDuration != 3*time.Second {
		t.Errorf("CrossfadeDuration = %s, want 3s", cfg.CrossfadeDuration)
	}
	if cfg.BackgroundGain != 0.3 {
		t.Errorf("BackgroundGain = %g, want 0.3", cfg.BackgroundGain)
	}
	if cfg.Fallback != FallbackBare {
		t.Errorf("Fallback = %s, want bare", cfg.Fallback)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad backend", key: "SKALD_DB_BACKEND", value: "oracle"},
		{name: "bad fallback", key: "SKALD_FALLBACK", value: "silence"},
		{name: "bad sample rate", key: "SKALD_SAMPLE_RATE", value: "22050"},
		{name: "bad channels", key: "SKALD_CHANNELS", value: "6"},
		{name: "bad gain", key: "SKALD_BACKGROUND_GAIN", value: "1.5"},
		{name: "bad output", key: "SKALD_OUTPUT", value: "icecast"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s expected error", tt.key, tt.value)
			}
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SKALD_CROSSFADE", "5s")
	t.Setenv("SKALD_NEWS_FREQUENCY", "3")
	t.Setenv("SKALD_OUTPUT", "discard")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CrossfadeDuration != 5*time.Second {
		t.Errorf("CrossfadeDuration = %s, want 5s", cfg.CrossfadeDuration)
	}
	if cfg.NewsFrequency != 3 {
		t.Errorf("NewsFrequency = %d, want 3", cfg.NewsFrequency)
	}
	if cfg.Output != "discard" {
		t.Errorf("Output = %s, want discard", cfg.Output)
	}
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	data := []byte("station_name: Cane Bay Radio\nvoices:\n  - en-GB-libby\nnews_feed_url: https://example.com/rss.xml\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	profile, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	if profile.StationName != "Cane Bay Radio" {
		t.Errorf("StationName = %q", profile.StationName)
	}
	if len(profile.Voices) != 1 || profile.Voices[0] != "en-GB-libby" {
		t.Errorf("Voices = %v", profile.Voices)
	}
	// Unset fields keep defaults.
	if profile.FallbackVoice == "" {
		t.Error("FallbackVoice default lost")
	}
	if len(profile.CannedIntros) == 0 {
		t.Error("CannedIntros default lost")
	}
}

func TestLoadProfileEmptyPath(t *testing.T) {
	profile, err := LoadProfile("")
	if err != nil {
		t.Fatalf("LoadProfile(\"\") error = %v", err)
	}
	if profile.StationName != "Skald Radio" {
		t.Errorf("StationName = %q, want default", profile.StationName)
	}
}
