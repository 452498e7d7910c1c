/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// FallbackPolicy selects scheduler behaviour when next-segment preparation
// fails after its retry.
type FallbackPolicy string

const (
	// FallbackBare plays a bare song-to-song crossfade with no intro.
	FallbackBare FallbackPolicy = "bare"
	// FallbackCanned plays a canned announcement line instead of a
	// generated one. Requires a synthesizer that is still reachable.
	FallbackCanned FallbackPolicy = "canned"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int

	DBBackend DatabaseBackend
	DBDSN     string

	// Audio library folders
	MusicDir      string
	BackgroundDir string

	// PCM format shared by the whole pipeline
	SampleRate int
	Channels   int

	// External decoder binary (decodes compressed audio to raw S16LE)
	FFmpegBin string

	// Text generation service (Ollama-compatible)
	OllamaURL   string
	OllamaModel string
	TextTimeout time.Duration

	// Speech synthesis service
	TTSURL     string
	TTSTimeout time.Duration

	// Mixing and transition parameters
	CrossfadeDuration time.Duration
	CrossfadeMin      time.Duration
	BackgroundGain    float64
	IntroFadeIn       time.Duration
	IntroFadeOut      time.Duration
	IntroBuffer       time.Duration
	SeamFade          time.Duration

	// Scheduler parameters
	LookaheadMargin time.Duration
	NewsFrequency   int
	Fallback        FallbackPolicy

	// Output sink: "device" for the audio device, "discard" for headless runs
	Output string

	// Station profile YAML (voices, station name, canned lines, news feed)
	ProfilePath string

	// Watch the music folder and rescan on changes
	WatchMusicDir bool
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("SKALD_ENV", "development"),
		HTTPBind:    getEnv("SKALD_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("SKALD_HTTP_PORT", 8080),

		DBBackend: DatabaseBackend(getEnv("SKALD_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:     getEnv("SKALD_DB_DSN", "skald.db"),

		MusicDir:      getEnv("SKALD_MUSIC_DIR", "./music"),
		BackgroundDir: getEnv("SKALD_BACKGROUND_DIR", "./background"),

		SampleRate: getEnvInt("SKALD_SAMPLE_RATE", 44100),
		Channels:   getEnvInt("SKALD_CHANNELS", 2),

		FFmpegBin: getEnv("SKALD_FFMPEG_BIN", "ffmpeg"),

		OllamaURL:   getEnv("SKALD_OLLAMA_URL", "http://localhost:11434"),
		OllamaModel: getEnv("SKALD_OLLAMA_MODEL", "llama3.2"),
		TextTimeout: getEnvDuration("SKALD_TEXT_TIMEOUT", 30*time.Second),

		TTSURL:     getEnv("SKALD_TTS_URL", "http://localhost:5002"),
		TTSTimeout: getEnvDuration("SKALD_TTS_TIMEOUT", 30*time.Second),

		CrossfadeDuration: getEnvDuration("SKALD_CROSSFADE", 3*time.Second),
		CrossfadeMin:      getEnvDuration("SKALD_CROSSFADE_MIN", time.Second),
		BackgroundGain:    getEnvFloat("SKALD_BACKGROUND_GAIN", 0.3),
		IntroFadeIn:       getEnvDuration("SKALD_INTRO_FADE_IN", 500*time.Millisecond),
		IntroFadeOut:      getEnvDuration("SKALD_INTRO_FADE_OUT", time.Second),
		IntroBuffer:       getEnvDuration("SKALD_INTRO_BUFFER", 3*time.Second),
		SeamFade:          getEnvDuration("SKALD_SEAM_FADE", 250*time.Millisecond),

		LookaheadMargin: getEnvDuration("SKALD_LOOKAHEAD_MARGIN", 5*time.Second),
		NewsFrequency:   getEnvInt("SKALD_NEWS_FREQUENCY", 0),
		Fallback:        FallbackPolicy(getEnv("SKALD_FALLBACK", string(FallbackBare))),

		Output: getEnv("SKALD_OUTPUT", "device"),

		ProfilePath:   getEnv("SKALD_PROFILE", ""),
		WatchMusicDir: getEnvBool("SKALD_WATCH_MUSIC_DIR", true),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}
	if cfg.Fallback != FallbackBare && cfg.Fallback != FallbackCanned {
		return nil, fmt.Errorf("unsupported fallback policy %q", cfg.Fallback)
	}
	if cfg.SampleRate != 44100 && cfg.SampleRate != 48000 {
		return nil, fmt.Errorf("sample rate must be 44100 or 48000, got %d", cfg.SampleRate)
	}
	if cfg.Channels != 1 && cfg.Channels != 2 {
		return nil, fmt.Errorf("channels must be 1 or 2, got %d", cfg.Channels)
	}
	if cfg.BackgroundGain <= 0 || cfg.BackgroundGain > 1 {
		return nil, fmt.Errorf("background gain must be in (0, 1], got %g", cfg.BackgroundGain)
	}
	if cfg.CrossfadeMin > cfg.CrossfadeDuration {
		return nil, fmt.Errorf("crossfade minimum %s exceeds crossfade duration %s", cfg.CrossfadeMin, cfg.CrossfadeDuration)
	}
	if cfg.Output != "device" && cfg.Output != "discard" {
		return nil, fmt.Errorf("unsupported output %q", cfg.Output)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
