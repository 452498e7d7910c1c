/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/skald_radio/internal/announcer"
	"github.com/friendsincode/skald_radio/internal/catalog"
	"github.com/friendsincode/skald_radio/internal/config"
	"github.com/friendsincode/skald_radio/internal/db"
	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/logging"
	"github.com/friendsincode/skald_radio/internal/playout"
	"github.com/friendsincode/skald_radio/internal/segment"
	"github.com/friendsincode/skald_radio/internal/server"
	"github.com/friendsincode/skald_radio/internal/speech"
	"github.com/friendsincode/skald_radio/internal/telemetry"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "skaldradio",
	Short: "Skald Radio - Unattended AI radio station",
	Long:  "Skald Radio runs an unattended radio broadcast: it picks tracks, generates and voices DJ introductions, and plays everything out as one gapless crossfaded stream.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the broadcast",
	Long:  "Scan the music library, start the playback scheduler, and serve the HTTP control surface.",
	RunE:  runServe,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the music library and exit",
	Long:  "Index the music directory into the track catalog without starting playback.",
	RunE:  runScan,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment)
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close(database)
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	cat := catalog.New(cfg.MusicDir, database, nil, logger)
	if err := cat.Scan(cmd.Context()); err != nil {
		return err
	}
	logger.Info().Int("tracks", cat.Len()).Msg("library scan complete")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Msg("Skald Radio starting")

	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close(database)
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	bus := events.NewBus()
	metrics := telemetry.New()

	cat := catalog.New(cfg.MusicDir, database, bus, logger)
	if err := cat.Scan(context.Background()); err != nil {
		return fmt.Errorf("scan library: %w", err)
	}
	logger.Info().Int("tracks", cat.Len()).Str("dir", cfg.MusicDir).Msg("library ready")

	decoder := catalog.NewDecoder(cfg.FFmpegBin, cfg.SampleRate, cfg.Channels, logger)
	beds := catalog.NewBedPool(cfg.BackgroundDir, decoder, logger)
	selector := catalog.NewSelector(cat)

	textClient := announcer.NewClient(cfg.OllamaURL, cfg.OllamaModel, profile.StationName, cfg.TextTimeout, logger)
	var news segment.NewsSource
	if profile.NewsFeedURL != "" && cfg.NewsFrequency > 0 {
		news = announcer.NewNewsReader(profile.NewsFeedURL, profile.StationName, textClient, cfg.TextTimeout, logger)
	}
	speechClient := speech.NewClient(cfg.TTSURL, cfg.SampleRate, cfg.Channels, cfg.TTSTimeout, logger)

	composer := segment.NewComposer(decoder, beds, textClient, speechClient, news, cfg, profile, logger)

	sink, err := openSink(cfg)
	if err != nil {
		return err
	}
	defer sink.Close()

	scheduler := playout.NewScheduler(sink, selector, composer, cfg, bus, metrics, logger)
	srv := server.New(cfg, scheduler, cat, bus, metrics, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	fatal := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("scheduler exited")
			select {
			case fatal <- err:
			default:
			}
		}
	}()

	if cfg.WatchMusicDir {
		watcher := catalog.NewWatcher(cat, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn().Err(err).Msg("music folder watcher exited")
			}
		}()
	}

	httpServer := srv.HTTPServer()
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
		logger.Info().Msg("shutting down gracefully...")
	case runErr = <-fatal:
		logger.Error().Err(runErr).Msg("broadcast halted, shutting down")
	}

	cancel()

	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer timeoutCancel()
	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	wg.Wait()
	logger.Info().Msg("Skald Radio stopped")
	return runErr
}

// openSink selects the output per configuration.
func openSink(cfg *config.Config) (playout.Sink, error) {
	switch cfg.Output {
	case "discard":
		return playout.NewDiscardSink(cfg.SampleRate, cfg.Channels, true), nil
	default:
		return playout.NewDeviceSink(cfg.SampleRate, cfg.Channels)
	}
}
