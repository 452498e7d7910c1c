/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/audio"
)

// BedPool serves background-music buffers for voice-over beds. Selection is
// uniformly random per request with no non-repeat guarantee. Decoded beds
// are cached; bed folders are small and reused constantly.
type BedPool struct {
	dir     string
	decoder *Decoder
	logger  zerolog.Logger

	mu    sync.Mutex
	cache map[string]*audio.Buffer
}

// NewBedPool creates a pool over a background-music directory.
func NewBedPool(dir string, decoder *Decoder, logger zerolog.Logger) *BedPool {
	return &BedPool{
		dir:     dir,
		decoder: decoder,
		logger:  logger.With().Str("component", "bedpool").Logger(),
		cache:   make(map[string]*audio.Buffer),
	}
}

// Random returns a randomly chosen background bed, decoded to PCM.
func (p *BedPool) Random(ctx context.Context) (*audio.Buffer, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("read background dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if audioExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(p.dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no background music in %s", ErrEmptyCatalog, p.dir)
	}

	path := files[rand.IntN(len(files))]

	p.mu.Lock()
	cached, ok := p.cache[path]
	p.mu.Unlock()
	if ok {
		return cached, nil
	}

	buf, err := p.decoder.Decode(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("decode bed: %w", err)
	}

	p.mu.Lock()
	p.cache[path] = buf
	p.mu.Unlock()

	p.logger.Debug().Str("path", path).Msg("background bed decoded")
	return buf, nil
}
