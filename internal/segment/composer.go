/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package segment assembles broadcast segments: a spoken introduction mixed
// over a background bed, followed by the song it introduces. The composer
// depends only on narrow interfaces so the generation, synthesis, and decode
// services can be swapped in tests.
package segment

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/audio"
	"github.com/friendsincode/skald_radio/internal/config"
	"github.com/friendsincode/skald_radio/internal/models"
)

// Segment is a fully prepared broadcast unit, ready for playout.
type Segment struct {
	Track models.Track

	// Intro is the voice-over mixed with its background bed. Nil for a
	// bare fallback segment.
	Intro *audio.Buffer

	// Song is the decoded track audio.
	Song *audio.Buffer

	// Crossfade is the overlap to use when blending Intro into Song, and
	// the previous song's tail into Intro.
	Crossfade time.Duration

	// NewsBreak reports whether the intro carries a news summary.
	NewsBreak bool
}

// Duration returns the total playout time of the segment, accounting for the
// intro-to-song overlap.
func (s *Segment) Duration() time.Duration {
	if s.Intro == nil {
		return s.Song.Duration()
	}
	return s.Intro.Duration() + s.Song.Duration() - s.Crossfade
}

// TrackDecoder decodes an audio file to station-format PCM.
type TrackDecoder interface {
	Decode(ctx context.Context, path string) (*audio.Buffer, error)
}

// BedSource supplies background music for voice-overs.
type BedSource interface {
	Random(ctx context.Context) (*audio.Buffer, error)
}

// TextGenerator produces introduction copy for a track.
type TextGenerator interface {
	GenerateIntroduction(ctx context.Context, title, artist string) (string, error)
}

// SpeechSynthesizer renders text to station-format PCM.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (*audio.Buffer, error)
}

// NewsSource produces a news-break script. Optional.
type NewsSource interface {
	Break(ctx context.Context) (string, error)
}

// Composer builds segments from catalog tracks.
type Composer struct {
	decoder TrackDecoder
	beds    BedSource
	text    TextGenerator
	speech  SpeechSynthesizer
	news    NewsSource

	cfg     *config.Config
	profile *config.Profile
	logger  zerolog.Logger

	composed int
}

// NewComposer wires a composer. news may be nil when no feed is configured.
func NewComposer(decoder TrackDecoder, beds BedSource, text TextGenerator, speech SpeechSynthesizer, news NewsSource, cfg *config.Config, profile *config.Profile, logger zerolog.Logger) *Composer {
	return &Composer{
		decoder: decoder,
		beds:    beds,
		text:    text,
		speech:  speech,
		news:    news,
		cfg:     cfg,
		profile: profile,
		logger:  logger.With().Str("component", "composer").Logger(),
	}
}

// Compose prepares a full segment for the track: generated introduction text,
// synthesized speech over a background bed, and the decoded song. The
// returned error wraps a classification sentinel.
func (c *Composer) Compose(ctx context.Context, track models.Track) (*Segment, error) {
	song, err := c.decodeSong(ctx, track)
	if err != nil {
		return nil, err
	}

	text, newsBreak, err := c.introText(ctx, track)
	if err != nil {
		return nil, err
	}

	intro, err := c.renderIntro(ctx, text)
	if err != nil {
		return nil, err
	}

	seg := &Segment{
		Track:     track,
		Intro:     intro,
		Song:      song,
		Crossfade: c.clampCrossfade(intro, song),
		NewsBreak: newsBreak,
	}
	c.composed++

	c.logger.Info().
		Str("title", track.Title).
		Str("artist", track.Artist).
		Dur("intro", intro.Duration()).
		Dur("song", song.Duration()).
		Bool("news", newsBreak).
		Msg("segment composed")
	return seg, nil
}

// ComposeCanned prepares a segment whose introduction uses a canned line
// instead of generated text. Used as a fallback when text generation is
// unavailable but synthesis still works.
func (c *Composer) ComposeCanned(ctx context.Context, track models.Track) (*Segment, error) {
	song, err := c.decodeSong(ctx, track)
	if err != nil {
		return nil, err
	}

	intro, err := c.renderIntro(ctx, c.cannedLine(track))
	if err != nil {
		return nil, err
	}

	return &Segment{
		Track:     track,
		Intro:     intro,
		Song:      song,
		Crossfade: c.clampCrossfade(intro, song),
	}, nil
}

// ComposeBare prepares a segment with no introduction at all. The scheduler
// plays it as a direct song-to-song crossfade.
func (c *Composer) ComposeBare(ctx context.Context, track models.Track) (*Segment, error) {
	song, err := c.decodeSong(ctx, track)
	if err != nil {
		return nil, err
	}

	return &Segment{
		Track:     track,
		Song:      song,
		Crossfade: c.clampBare(song),
	}, nil
}

func (c *Composer) decodeSong(ctx context.Context, track models.Track) (*audio.Buffer, error) {
	song, err := c.decoder.Decode(ctx, track.Path)
	if err != nil {
		return nil, c.classify(ErrDecode, err)
	}
	if song.Frames() == 0 {
		return nil, fmt.Errorf("%w: %s decoded to zero frames", ErrDecode, track.Path)
	}
	return song, nil
}

// introText returns the spoken copy for the segment, prepending a news
// summary when one is due. News failures degrade to a plain introduction.
func (c *Composer) introText(ctx context.Context, track models.Track) (string, bool, error) {
	tctx, cancel := context.WithTimeout(ctx, c.cfg.TextTimeout)
	defer cancel()

	intro, err := c.text.GenerateIntroduction(tctx, track.Title, track.Artist)
	if err != nil {
		return "", false, c.classify(ErrTextGeneration, err)
	}

	if !c.newsDue() {
		return intro, false, nil
	}

	news, err := c.news.Break(tctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("news break failed, continuing without it")
		return intro, false, nil
	}
	return news + " " + intro, true, nil
}

// newsDue reports whether this segment should open with a news break.
func (c *Composer) newsDue() bool {
	if c.news == nil || c.cfg.NewsFrequency <= 0 {
		return false
	}
	return c.composed > 0 && c.composed%c.cfg.NewsFrequency == 0
}

// renderIntro synthesizes the text and mixes it over a background bed with
// silent lead-in and lead-out so the crossfades land on bed-only audio.
func (c *Composer) renderIntro(ctx context.Context, text string) (*audio.Buffer, error) {
	voice, err := c.synthesize(ctx, text)
	if err != nil {
		return nil, err
	}

	lead := audio.Silence(voice.SampleRate, voice.Channels, c.cfg.IntroBuffer)
	padded := audio.NewBuffer(voice.SampleRate, voice.Channels, lead.Frames()*2+voice.Frames())
	copy(padded.Samples[lead.Frames()*voice.Channels:], voice.Samples)

	bed, err := c.beds.Random(ctx)
	if err != nil {
		// A missing bed folder should not kill the broadcast.
		c.logger.Warn().Err(err).Msg("no background bed, using dry voice")
		return audio.ApplyFade(padded, c.cfg.IntroFadeIn, c.cfg.IntroFadeOut), nil
	}

	fitted := audio.FitToDuration(bed, padded.Duration(), c.cfg.SeamFade, c.cfg.IntroFadeOut)
	mixed, err := audio.MixAtVolume(padded, fitted, c.cfg.BackgroundGain)
	if err != nil {
		return nil, fmt.Errorf("mix bed: %w", err)
	}
	return audio.ApplyFade(mixed, c.cfg.IntroFadeIn, c.cfg.IntroFadeOut), nil
}

// synthesize renders text with a randomly chosen voice, retrying once with
// the fallback voice.
func (c *Composer) synthesize(ctx context.Context, text string) (*audio.Buffer, error) {
	sctx, cancel := context.WithTimeout(ctx, c.cfg.TTSTimeout)
	defer cancel()

	voice := c.profile.FallbackVoice
	if len(c.profile.Voices) > 0 {
		voice = c.profile.Voices[rand.IntN(len(c.profile.Voices))]
	}

	buf, err := c.speech.Synthesize(sctx, text, voice)
	if err == nil {
		return buf, nil
	}
	if voice == c.profile.FallbackVoice {
		return nil, c.classify(ErrSpeechSynthesis, err)
	}

	c.logger.Warn().Err(err).Str("voice", voice).Msg("voice failed, retrying with fallback voice")
	buf, err = c.speech.Synthesize(sctx, text, c.profile.FallbackVoice)
	if err != nil {
		return nil, c.classify(ErrSpeechSynthesis, err)
	}
	return buf, nil
}

// cannedLine fills a random canned template with track and station details.
func (c *Composer) cannedLine(track models.Track) string {
	lines := c.profile.CannedIntros
	if len(lines) == 0 {
		return fmt.Sprintf("Up next: %s by %s.", track.Title, track.Artist)
	}
	line := lines[rand.IntN(len(lines))]
	return strings.NewReplacer(
		"{title}", track.Title,
		"{artist}", track.Artist,
		"{station}", c.profile.StationName,
	).Replace(line)
}

// classify wraps a service error with its kind sentinel; deadline failures
// additionally carry the timeout sentinel.
func (c *Composer) classify(kind error, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: %w", kind, ErrPreparationTimeout, err)
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// clampCrossfade bounds the configured crossfade so the overlap never exceeds
// the intro tail or the song, but never falls below the configured minimum
// when the material allows it.
func (c *Composer) clampCrossfade(intro, song *audio.Buffer) time.Duration {
	cf := c.cfg.CrossfadeDuration
	if limit := c.cfg.IntroBuffer; cf > limit {
		cf = limit
	}
	if cf < c.cfg.CrossfadeMin {
		cf = c.cfg.CrossfadeMin
	}
	if d := intro.Duration() / 2; cf > d {
		cf = d
	}
	if d := song.Duration() / 2; cf > d {
		cf = d
	}
	return cf
}

// clampBare bounds the crossfade for a segment with no intro.
func (c *Composer) clampBare(song *audio.Buffer) time.Duration {
	cf := c.cfg.CrossfadeDuration
	if d := song.Duration() / 2; cf > d {
		cf = d
	}
	return cf
}
