/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// rescanDebounce coalesces bursts of filesystem events into one rescan.
const rescanDebounce = 2 * time.Second

// Watcher rescans the catalog when the music directory changes, so new
// files enter rotation without a restart.
type Watcher struct {
	catalog *Catalog
	logger  zerolog.Logger
}

// NewWatcher creates a watcher for the catalog's music directory.
func NewWatcher(catalog *Catalog, logger zerolog.Logger) *Watcher {
	return &Watcher{
		catalog: catalog,
		logger:  logger.With().Str("component", "watcher").Logger(),
	}
}

// Run watches until context cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := addRecursive(fsw, w.catalog.dir); err != nil {
		return err
	}

	w.logger.Info().Str("dir", w.catalog.dir).Msg("music folder watcher started")

	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			// New subdirectories need watching too.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addRecursive(fsw, event.Name)
				}
			}
			if timer == nil {
				timer = time.AfterFunc(rescanDebounce, func() {
					select {
					case pending <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(rescanDebounce)
			}

		case <-pending:
			timer = nil
			if err := w.catalog.Scan(ctx); err != nil {
				w.logger.Warn().Err(err).Msg("rescan failed")
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("watcher error")
		}
	}
}

// relevant filters out hidden/temporary files and non-audio paths.
func relevant(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
		return false
	}
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		ext := strings.ToLower(filepath.Ext(event.Name))
		return ext == "" || audioExtensions[ext]
	}
	return false
}

func addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}
