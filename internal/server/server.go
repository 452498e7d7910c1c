/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server exposes the station's control surface: health, status and
// transport controls over HTTP, live events over WebSocket, and Prometheus
// metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/friendsincode/skald_radio/internal/config"
	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/models"
	"github.com/friendsincode/skald_radio/internal/playout"
	"github.com/friendsincode/skald_radio/internal/telemetry"
)

// Controller is the slice of the scheduler the control surface needs.
type Controller interface {
	Status() playout.Status
	Skip()
	Pause()
	Resume()
}

// CatalogReader lists the tracks currently in rotation.
type CatalogReader interface {
	Tracks() []models.Track
	Len() int
}

// Server bundles the HTTP control surface.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server

	controller Controller
	catalog    CatalogReader
	bus        *events.Bus
	metrics    *telemetry.Metrics
}

// New constructs the server and wires its routes.
func New(cfg *config.Config, controller Controller, catalog CatalogReader, bus *events.Bus, metrics *telemetry.Metrics, logger zerolog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	// Skip timeout for WebSocket upgrades; event streams are long-lived.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(30 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:        cfg,
		logger:     logger.With().Str("component", "server").Logger(),
		router:     router,
		controller: controller,
		catalog:    catalog,
		bus:        bus,
		metrics:    metrics,
	}
	srv.configureRoutes()

	srv.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/nowplaying", s.handleNowPlaying)
		r.Get("/catalog", s.handleCatalog)
		r.Post("/skip", s.handleSkip)
		r.Post("/pause", s.handlePause)
		r.Post("/resume", s.handleResume)
		r.Get("/events", s.handleEvents)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) handleNowPlaying(w http.ResponseWriter, r *http.Request) {
	st := s.controller.Status()
	if st.Track == nil {
		writeJSON(w, http.StatusOK, map[string]any{"playing": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"playing":     !st.Paused,
		"title":       st.Track.Title,
		"artist":      st.Track.Artist,
		"album":       st.Track.Album,
		"position_ms": st.Position.Milliseconds(),
		"state":       st.State,
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  s.catalog.Len(),
		"tracks": s.catalog.Tracks(),
	})
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	s.controller.Skip()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "skipping"})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.controller.Pause()
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.controller.Resume()
	writeJSON(w, http.StatusOK, map[string]string{"status": "playing"})
}

// wsEvent is the wire shape pushed to event stream clients.
type wsEvent struct {
	Event   string         `json:"event"`
	Payload events.Payload `json:"payload"`
}

// handleEvents streams bus events over a WebSocket until the client leaves.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // control surface is same-origin or proxied
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	streamed := []events.EventType{
		events.EventNowPlaying,
		events.EventPlaybackState,
		events.EventCrossfade,
		events.EventSegmentReady,
		events.EventSegmentFailed,
		events.EventSegmentLate,
		events.EventPlaybackHalted,
		events.EventCatalogUpdated,
		events.EventNewsBreak,
	}

	type tagged struct {
		event   events.EventType
		payload events.Payload
	}
	merged := make(chan tagged, 32)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for _, event := range streamed {
		sub := s.bus.SubscribeBuffered(event, 32)
		defer s.bus.Unsubscribe(event, sub)
		go func(event events.EventType, sub events.Subscriber) {
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-sub:
					if !ok {
						return
					}
					select {
					case merged <- tagged{event: event, payload: payload}:
					case <-ctx.Done():
						return
					}
				}
			}
		}(event, sub)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-merged:
			writeCtx, writeCancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, wsEvent{Event: string(msg.event), Payload: msg.payload})
			writeCancel()
			if err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
