/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog maintains the music library: directory scanning, tag
// extraction, duration probing, on-demand PCM decoding, and the
// non-repeating track selector that feeds the playback pipeline.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dhowden/tag"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/models"
)

// ErrEmptyCatalog is returned when no playable tracks exist.
var ErrEmptyCatalog = errors.New("catalog: no playable tracks")

var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".ogg":  true,
	".m4a":  true,
}

// Catalog holds the scanned music library. The database index is optional;
// with a nil db the catalog is memory only.
type Catalog struct {
	dir    string
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger

	mu     sync.RWMutex
	tracks []models.Track
}

// New creates a catalog over a music directory.
func New(dir string, db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Catalog {
	return &Catalog{
		dir:    dir,
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// Scan walks the music directory and rebuilds the track list. Unreadable
// files are skipped with a warning; a directory with no playable files
// yields ErrEmptyCatalog.
func (c *Catalog) Scan(ctx context.Context) error {
	var tracks []models.Track

	err := filepath.WalkDir(c.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !audioExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if strings.HasPrefix(filepath.Base(path), ".") {
			return nil
		}

		track, err := c.inspect(path)
		if err != nil {
			c.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable file")
			return nil
		}
		tracks = append(tracks, track)
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", c.dir, err)
	}

	if len(tracks) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyCatalog, c.dir)
	}

	if c.db != nil {
		if err := c.persist(ctx, tracks); err != nil {
			c.logger.Warn().Err(err).Msg("library index update failed")
		}
	}

	c.mu.Lock()
	c.tracks = tracks
	c.mu.Unlock()

	c.logger.Info().Int("tracks", len(tracks)).Str("dir", c.dir).Msg("catalog scanned")
	if c.bus != nil {
		c.bus.Publish(events.EventCatalogUpdated, events.Payload{"tracks": len(tracks)})
	}
	return nil
}

// inspect builds a Track record from one file.
func (c *Catalog) inspect(path string) (models.Track, error) {
	file, err := os.Open(path)
	if err != nil {
		return models.Track{}, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return models.Track{}, err
	}

	title, artist, album := metadataOrFilename(file, path, c.logger)

	duration, err := probeDuration(path)
	if err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("duration probe failed")
		duration = 0
	}

	return models.Track{
		ID:       uuid.NewSHA1(uuid.NameSpaceURL, []byte(path)).String(),
		Title:    title,
		Artist:   artist,
		Album:    album,
		Path:     path,
		Duration: duration,
		FileSize: stat.Size(),
	}, nil
}

// metadataOrFilename reads embedded tags, falling back to a filename derived
// title when tags are missing or unreadable.
func metadataOrFilename(file *os.File, path string, logger zerolog.Logger) (title, artist, album string) {
	filename := filepath.Base(path)
	title = strings.TrimSuffix(filename, filepath.Ext(filename))
	artist = "Unknown Artist"

	meta, err := tag.ReadFrom(file)
	if err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("no readable tags, using filename")
		return title, artist, album
	}

	if meta.Title() != "" {
		title = meta.Title()
	}
	if meta.Artist() != "" {
		artist = meta.Artist()
	}
	album = meta.Album()
	return title, artist, album
}

// persist upserts scanned tracks into the library index and prunes records
// for files that no longer exist.
func (c *Catalog) persist(ctx context.Context, tracks []models.Track) error {
	tx := c.db.WithContext(ctx)

	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		UpdateAll: true,
	}).Create(&tracks).Error; err != nil {
		return err
	}

	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return tx.Where("id NOT IN ?", ids).Delete(&models.Track{}).Error
}

// Tracks returns a snapshot of the current track list.
func (c *Catalog) Tracks() []models.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Track(nil), c.tracks...)
}

// Len returns the number of cataloged tracks.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tracks)
}

// setTracks replaces the track list. Used by tests.
func (c *Catalog) setTracks(tracks []models.Track) {
	c.mu.Lock()
	c.tracks = tracks
	c.mu.Unlock()
}
