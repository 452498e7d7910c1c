/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/tcolgate/mp3"
)

// probeDuration reads just enough of a file to determine its playback
// duration without decoding it to PCM.
func probeDuration(path string) (time.Duration, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3Duration(path)
	case ".flac":
		return flacDuration(path)
	case ".wav":
		return wavDuration(path)
	default:
		// Formats without a cheap probe are measured at decode time.
		return 0, nil
	}
}

// mp3Duration sums frame durations. Files with a corrupt tail keep the
// partial total; files with no decodable frame at all are estimated from
// size assuming 192 kbps.
func mp3Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var frame mp3.Frame
		if err := dec.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				return estimateFromSize(path, 192000)
			}
			break
		}
		total += frame.Duration()
		frames++
	}
	return total, nil
}

func flacDuration(path string) (time.Duration, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	info := stream.Info
	if info.SampleRate == 0 {
		return 0, fmt.Errorf("flac %s: zero sample rate", path)
	}
	return time.Duration(info.NSamples) * time.Second / time.Duration(info.SampleRate), nil
}

func wavDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	dur, err := decoder.Duration()
	if err != nil {
		return 0, fmt.Errorf("wav %s: %w", path, err)
	}
	return dur, nil
}

// estimateFromSize derives a rough duration from file size and an assumed
// constant bitrate in bits per second.
func estimateFromSize(path string, bitrate int64) (time.Duration, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	seconds := float64(stat.Size()*8) / float64(bitrate)
	return time.Duration(seconds * float64(time.Second)), nil
}
