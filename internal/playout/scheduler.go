/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playout drives the broadcast: it pulls prepared segments, blends
// them into a gapless stream, and pumps PCM to the output sink while the
// next segment is prepared concurrently.
package playout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/audio"
	"github.com/friendsincode/skald_radio/internal/config"
	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/models"
	"github.com/friendsincode/skald_radio/internal/segment"
	"github.com/friendsincode/skald_radio/internal/telemetry"
)

// State is the scheduler's playback phase.
type State string

const (
	StateIdle                State = "idle"
	StatePlayingIntro        State = "playing_intro"
	StateCrossfadingIntoSong State = "crossfading_into_song"
	StatePlayingSong         State = "playing_song"
	StateCrossfadingIntoNext State = "crossfading_into_next"
)

// PlaybackError wraps an output sink failure. Sink failures are fatal: the
// broadcast cannot continue without somewhere to put the audio.
type PlaybackError struct {
	Err error
}

func (e *PlaybackError) Error() string { return "playout: " + e.Err.Error() }
func (e *PlaybackError) Unwrap() error { return e.Err }

// TrackSelector picks the next track to broadcast.
type TrackSelector interface {
	Next() (models.Track, error)
}

// SegmentComposer prepares segments at decreasing levels of ambition.
type SegmentComposer interface {
	Compose(ctx context.Context, track models.Track) (*segment.Segment, error)
	ComposeCanned(ctx context.Context, track models.Track) (*segment.Segment, error)
	ComposeBare(ctx context.Context, track models.Track) (*segment.Segment, error)
}

// Status is a snapshot of the scheduler for operators.
type Status struct {
	State    State         `json:"state"`
	Paused   bool          `json:"paused"`
	Track    *models.Track `json:"track,omitempty"`
	Position time.Duration `json:"position"`
}

type prepResult struct {
	seg *segment.Segment
	err error
}

// trackAttempts bounds how many different tracks are tried before the
// scheduler gives up on preparing a segment.
const trackAttempts = 3

// Scheduler runs the broadcast loop.
type Scheduler struct {
	sink     Sink
	selector TrackSelector
	composer SegmentComposer
	cfg      *config.Config
	bus      *events.Bus
	metrics  *telemetry.Metrics
	logger   zerolog.Logger

	chunkFrames int
	next        chan prepResult
	skip        chan struct{}

	mu       sync.Mutex
	state    State
	paused   bool
	resume   chan struct{}
	track    *models.Track
	position time.Duration
}

// NewScheduler wires a scheduler. bus may be nil for headless use.
func NewScheduler(sink Sink, selector TrackSelector, composer SegmentComposer, cfg *config.Config, bus *events.Bus, metrics *telemetry.Metrics, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		sink:        sink,
		selector:    selector,
		composer:    composer,
		cfg:         cfg,
		bus:         bus,
		metrics:     metrics,
		logger:      logger.With().Str("component", "scheduler").Logger(),
		chunkFrames: cfg.SampleRate / 10,
		next:        make(chan prepResult, 1),
		skip:        make(chan struct{}, 1),
		state:       StateIdle,
	}
}

// Run broadcasts until the context is cancelled or the sink fails. The first
// segment is prepared synchronously; every later one is prepared while its
// predecessor's song plays.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.setState(StateIdle)

	current, err := s.prepare(ctx)
	if err != nil {
		return err
	}

	// tail is the reserved end of the previous stream, blended over the
	// head of the next one.
	var tail *audio.Buffer

	for {
		stream, introFrames, err := s.assemble(current, tail)
		if err != nil {
			return err
		}

		s.beginSegment(current, tail != nil)

		reserve := s.framesFor(current.Crossfade)
		playEnd := stream.Frames() - reserve
		headBlend := 0
		if tail != nil {
			headBlend = tail.Frames()
		}

		// Last frame at which the next segment should already be waiting.
		marginAt := playEnd - s.framesFor(s.cfg.LookaheadMargin)
		if marginAt < 0 {
			marginAt = 0
		}

		seg := current
		pos, skipped, err := s.pump(ctx, stream, playEnd, pumpMarks{
			headBlend:  headBlend,
			songStart:  songStartFrame(current, introFrames),
			introEnd:   introFrames,
			hasIntro:   current.Intro != nil,
			marginAt:   marginAt,
			launchPrep: func() { go s.prepareAsync(ctx) },
			onMargin:   func() { s.checkLookahead(seg) },
		})
		if err != nil {
			var perr *PlaybackError
			if errors.As(err, &perr) {
				s.publish(events.EventPlaybackHalted, events.Payload{"error": err.Error()})
				s.logger.Error().Err(err).Msg("output sink failed, halting broadcast")
			}
			return err
		}

		if skipped {
			s.metrics.Skips.Inc()
			s.logger.Info().Str("title", current.Track.Title).Msg("track skipped")
			tail = stream.Slice(pos, pos+reserve).Clone()
		} else {
			tail = stream.Slice(playEnd, stream.Frames()).Clone()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-s.next:
			if res.err != nil {
				return res.err
			}
			current = res.seg
		}
	}
}

// assemble renders a segment plus the previous stream's tail into one
// contiguous buffer. Blending the full tail over the stream head keeps frame
// indices unshifted.
func (s *Scheduler) assemble(seg *segment.Segment, tail *audio.Buffer) (*audio.Buffer, int, error) {
	stream := seg.Song
	introFrames := 0
	if seg.Intro != nil {
		blended, err := audio.Crossfade(seg.Intro, seg.Song, seg.Crossfade)
		if err != nil {
			return nil, 0, fmt.Errorf("blend intro into song: %w", err)
		}
		stream = blended
		introFrames = seg.Intro.Frames()
	}

	if tail != nil {
		joined, err := audio.Crossfade(tail, stream, tail.Duration())
		if err != nil {
			return nil, 0, fmt.Errorf("blend previous tail: %w", err)
		}
		stream = joined
		s.metrics.Crossfades.Inc()
		s.publish(events.EventCrossfade, events.Payload{
			"duration_ms": tail.Duration().Milliseconds(),
			"into":        seg.Track.Title,
		})
	}
	return stream, introFrames, nil
}

// songStartFrame returns the frame where the song becomes dominant: the
// start of the intro-to-song overlap.
func songStartFrame(seg *segment.Segment, introFrames int) int {
	if seg.Intro == nil {
		return 0
	}
	return introFrames - int(int64(seg.Crossfade)*int64(seg.Song.SampleRate)/int64(time.Second))
}

type pumpMarks struct {
	headBlend  int
	songStart  int
	introEnd   int
	hasIntro   bool
	marginAt   int
	launchPrep func()
	onMargin   func()
}

// pump writes stream frames [0, playEnd) to the sink in chunks, honoring
// pause and skip between chunks and kicking off next-segment preparation
// when the song region is reached. Once preparation has been launched and
// playback crosses marginAt, onMargin fires once so the scheduler can flag
// a late next segment. A zero lookahead margin places marginAt at playEnd
// and the check never fires.
func (s *Scheduler) pump(ctx context.Context, stream *audio.Buffer, playEnd int, marks pumpMarks) (int, bool, error) {
	prepStarted := false
	marginChecked := false
	pos := 0

	for pos < playEnd {
		if err := s.waitIfPaused(ctx); err != nil {
			return pos, false, err
		}

		select {
		case <-ctx.Done():
			return pos, false, ctx.Err()
		case <-s.skip:
			if !prepStarted {
				marks.launchPrep()
			}
			return pos, true, nil
		default:
		}

		s.setState(stateAt(pos, marks))
		s.setPosition(pos, stream.SampleRate)

		if !prepStarted && pos >= marks.songStart {
			prepStarted = true
			marks.launchPrep()
		}
		if prepStarted && !marginChecked && pos >= marks.marginAt {
			marginChecked = true
			if marks.onMargin != nil {
				marks.onMargin()
			}
		}

		end := pos + s.chunkFrames
		if end > playEnd {
			end = playEnd
		}

		if err := s.sink.WriteFrame(stream.Slice(pos, end).Samples); err != nil {
			return pos, false, &PlaybackError{Err: err}
		}
		s.metrics.FramesWritten.Add(float64(end - pos))
		pos = end
	}

	if !prepStarted {
		marks.launchPrep()
	}
	return pos, false, nil
}

// stateAt maps a stream position to a playback phase.
func stateAt(pos int, marks pumpMarks) State {
	switch {
	case pos < marks.headBlend:
		return StateCrossfadingIntoNext
	case marks.hasIntro && pos < marks.songStart:
		return StatePlayingIntro
	case marks.hasIntro && pos < marks.introEnd:
		return StateCrossfadingIntoSong
	default:
		return StatePlayingSong
	}
}

// prepare builds the next segment: full composition, one retry, then the
// configured fallback. Undecodable tracks are dropped and another is tried.
func (s *Scheduler) prepare(ctx context.Context) (*segment.Segment, error) {
	for attempt := 0; attempt < trackAttempts; attempt++ {
		track, err := s.selector.Next()
		if err != nil {
			return nil, err
		}

		start := time.Now()
		seg, err := s.composer.Compose(ctx, track)
		if err == nil {
			return s.prepared(seg, start, false), nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.noteFailure(track, err)

		if !errors.Is(err, segment.ErrDecode) {
			seg, err = s.composer.Compose(ctx, track)
			if err == nil {
				return s.prepared(seg, start, false), nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.noteFailure(track, err)
		}

		if errors.Is(err, segment.ErrDecode) {
			// The file itself is bad; no fallback will save it.
			continue
		}

		if s.cfg.Fallback == config.FallbackCanned {
			if seg, cerr := s.composer.ComposeCanned(ctx, track); cerr == nil {
				return s.prepared(seg, start, true), nil
			}
			s.logger.Warn().Str("title", track.Title).Msg("canned fallback failed, degrading to bare segment")
		}
		if seg, berr := s.composer.ComposeBare(ctx, track); berr == nil {
			return s.prepared(seg, start, true), nil
		}
	}
	return nil, fmt.Errorf("playout: no playable segment after %d tracks", trackAttempts)
}

func (s *Scheduler) prepared(seg *segment.Segment, start time.Time, fallback bool) *segment.Segment {
	s.metrics.SegmentsPrepared.Inc()
	s.metrics.PrepLatency.Observe(time.Since(start).Seconds())
	if fallback {
		s.metrics.Fallbacks.Inc()
	}
	s.publish(events.EventSegmentReady, events.Payload{
		"track_id": seg.Track.ID,
		"title":    seg.Track.Title,
		"fallback": fallback,
	})
	return seg
}

func (s *Scheduler) noteFailure(track models.Track, err error) {
	s.metrics.SegmentsFailed.WithLabelValues(failureCause(err)).Inc()
	s.publish(events.EventSegmentFailed, events.Payload{
		"track_id": track.ID,
		"title":    track.Title,
		"error":    err.Error(),
	})
	s.logger.Warn().Err(err).Str("title", track.Title).Msg("segment preparation failed")
}

// checkLookahead flags a segment whose preparation has not finished with
// less than the lookahead margin of the current song remaining. The pump
// keeps playing either way; this is early warning, not a stall.
func (s *Scheduler) checkLookahead(seg *segment.Segment) {
	if len(s.next) > 0 {
		return
	}
	s.metrics.LookaheadMisses.Inc()
	s.publish(events.EventSegmentLate, events.Payload{
		"track_id":  seg.Track.ID,
		"title":     seg.Track.Title,
		"margin_ms": s.cfg.LookaheadMargin.Milliseconds(),
	})
	s.logger.Warn().
		Dur("margin", s.cfg.LookaheadMargin).
		Str("title", seg.Track.Title).
		Msg("next segment not ready inside lookahead margin")
}

func (s *Scheduler) prepareAsync(ctx context.Context) {
	seg, err := s.prepare(ctx)
	select {
	case s.next <- prepResult{seg: seg, err: err}:
	case <-ctx.Done():
	}
}

// failureCause buckets a preparation error for metrics.
func failureCause(err error) string {
	switch {
	case errors.Is(err, segment.ErrPreparationTimeout):
		return "timeout"
	case errors.Is(err, segment.ErrTextGeneration):
		return "text_generation"
	case errors.Is(err, segment.ErrSpeechSynthesis):
		return "speech_synthesis"
	case errors.Is(err, segment.ErrDecode):
		return "decode"
	default:
		return "other"
	}
}

// Skip requests an early transition out of the current track. Duplicate
// requests while one is pending are dropped.
func (s *Scheduler) Skip() {
	select {
	case s.skip <- struct{}{}:
	default:
	}
}

// Pause suspends the pump between frames. Audio already buffered by the
// device keeps playing out.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	if !s.paused {
		s.paused = true
		s.resume = make(chan struct{})
	}
	s.mu.Unlock()
	s.publish(events.EventPlaybackState, events.Payload{"paused": true})
}

// Resume releases a paused pump.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	if s.paused {
		s.paused = false
		close(s.resume)
	}
	s.mu.Unlock()
	s.publish(events.EventPlaybackState, events.Payload{"paused": false})
}

func (s *Scheduler) waitIfPaused(ctx context.Context) error {
	s.mu.Lock()
	paused, ch := s.paused, s.resume
	s.mu.Unlock()
	if !paused {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

// Status returns a snapshot for the control surface.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{State: s.state, Paused: s.paused, Position: s.position}
	if s.track != nil {
		t := *s.track
		st.Track = &t
	}
	return st
}

func (s *Scheduler) beginSegment(seg *segment.Segment, crossfaded bool) {
	s.mu.Lock()
	t := seg.Track
	s.track = &t
	s.position = 0
	s.mu.Unlock()

	s.publish(events.EventNowPlaying, events.Payload{
		"track_id": seg.Track.ID,
		"title":    seg.Track.Title,
		"artist":   seg.Track.Artist,
		"news":     seg.NewsBreak,
	})
	if seg.NewsBreak {
		s.metrics.NewsBreaks.Inc()
		s.publish(events.EventNewsBreak, events.Payload{"track_id": seg.Track.ID})
	}

	s.logger.Info().
		Str("title", seg.Track.Title).
		Str("artist", seg.Track.Artist).
		Bool("crossfaded", crossfaded).
		Msg("now playing")
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()
	if changed {
		s.publish(events.EventPlaybackState, events.Payload{"state": string(state)})
	}
}

func (s *Scheduler) setPosition(frames, sampleRate int) {
	s.mu.Lock()
	s.position = time.Duration(frames) * time.Second / time.Duration(sampleRate)
	s.mu.Unlock()
}

func (s *Scheduler) framesFor(d time.Duration) int {
	return int(int64(d) * int64(s.cfg.SampleRate) / int64(time.Second))
}

func (s *Scheduler) publish(event events.EventType, payload events.Payload) {
	if s.bus != nil {
		s.bus.Publish(event, payload)
	}
}
