/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Track is an audio asset in the music library. Immutable once cataloged;
// records are replaced on rescan, never mutated in place.
type Track struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Title     string `gorm:"index"`
	Artist    string `gorm:"index"`
	Album     string
	Path      string `gorm:"uniqueIndex"`
	Duration  time.Duration
	FileSize  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
