/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package segment

import "errors"

// Preparation failures are classified by the service that caused them so the
// scheduler can log and meter them distinctly.
var (
	// ErrTextGeneration covers failures of the introduction text service.
	ErrTextGeneration = errors.New("segment: text generation failed")

	// ErrSpeechSynthesis covers failures of the text-to-speech service,
	// including the fallback voice.
	ErrSpeechSynthesis = errors.New("segment: speech synthesis failed")

	// ErrDecode covers failures to decode the song file itself.
	ErrDecode = errors.New("segment: song decode failed")

	// ErrPreparationTimeout marks failures caused by a deadline rather than
	// a service-side error.
	ErrPreparationTimeout = errors.New("segment: preparation timed out")
)
