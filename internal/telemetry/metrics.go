/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry exposes the station's Prometheus metrics.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the broadcast pipeline's instruments.
type Metrics struct {
	registry *prometheus.Registry

	SegmentsPrepared prometheus.Counter
	SegmentsFailed   *prometheus.CounterVec
	Fallbacks        prometheus.Counter
	Crossfades       prometheus.Counter
	NewsBreaks       prometheus.Counter
	LookaheadMisses  prometheus.Counter
	FramesWritten    prometheus.Counter
	Skips            prometheus.Counter
	PrepLatency      prometheus.Histogram
}

// New creates and registers the station metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		SegmentsPrepared: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skald_segments_prepared_total",
			Help: "Broadcast segments prepared successfully.",
		}),
		SegmentsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skald_segments_failed_total",
			Help: "Segment preparation failures by cause.",
		}, []string{"cause"}),
		Fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skald_fallback_segments_total",
			Help: "Segments that played with a fallback instead of a generated intro.",
		}),
		Crossfades: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skald_crossfades_total",
			Help: "Crossfade transitions performed.",
		}),
		NewsBreaks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skald_news_breaks_total",
			Help: "News breaks broadcast.",
		}),
		LookaheadMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skald_lookahead_misses_total",
			Help: "Songs that entered the lookahead margin before the next segment was ready.",
		}),
		FramesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skald_frames_written_total",
			Help: "PCM frames written to the output sink.",
		}),
		Skips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skald_skips_total",
			Help: "Tracks skipped by operator request.",
		}),
		PrepLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "skald_segment_prep_seconds",
			Help:    "Wall time to prepare one segment.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}

	reg.MustRegister(
		m.SegmentsPrepared,
		m.SegmentsFailed,
		m.Fallbacks,
		m.Crossfades,
		m.NewsBreaks,
		m.LookaheadMisses,
		m.FramesWritten,
		m.Skips,
		m.PrepLatency,
	)
	return m
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
