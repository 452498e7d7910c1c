/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/config"
	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/models"
	"github.com/friendsincode/skald_radio/internal/playout"
	"github.com/friendsincode/skald_radio/internal/telemetry"
)

type fakeController struct {
	mu      sync.Mutex
	status  playout.Status
	skips   int
	pauses  int
	resumes int
}

func (f *fakeController) Status() playout.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeController) Skip()   { f.mu.Lock(); f.skips++; f.mu.Unlock() }
func (f *fakeController) Pause()  { f.mu.Lock(); f.pauses++; f.mu.Unlock() }
func (f *fakeController) Resume() { f.mu.Lock(); f.resumes++; f.mu.Unlock() }

type fakeCatalog struct {
	tracks []models.Track
}

func (f *fakeCatalog) Tracks() []models.Track { return f.tracks }
func (f *fakeCatalog) Len() int               { return len(f.tracks) }

func testServer(t *testing.T, ctrl *fakeController, cat *fakeCatalog) *httptest.Server {
	t.Helper()
	cfg := &config.Config{HTTPBind: "127.0.0.1", HTTPPort: 0}
	srv := New(cfg, ctrl, cat, events.NewBus(), telemetry.New(), zerolog.Nop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	ts := testServer(t, &fakeController{}, &fakeCatalog{})

	var body map[string]string
	if code := getJSON(t, ts.URL+"/healthz", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestNowPlayingIdle(t *testing.T) {
	ts := testServer(t, &fakeController{status: playout.Status{State: playout.StateIdle}}, &fakeCatalog{})

	var body map[string]any
	getJSON(t, ts.URL+"/api/v1/nowplaying", &body)
	if body["playing"] != false {
		t.Errorf("idle station reports playing: %v", body)
	}
}

func TestNowPlayingWithTrack(t *testing.T) {
	ctrl := &fakeController{status: playout.Status{
		State:    playout.StatePlayingSong,
		Track:    &models.Track{ID: "t1", Title: "Song", Artist: "Band"},
		Position: 42 * time.Second,
	}}
	ts := testServer(t, ctrl, &fakeCatalog{})

	var body map[string]any
	getJSON(t, ts.URL+"/api/v1/nowplaying", &body)
	if body["title"] != "Song" || body["artist"] != "Band" {
		t.Errorf("body = %v", body)
	}
	if body["position_ms"] != float64(42000) {
		t.Errorf("position_ms = %v", body["position_ms"])
	}
}

func TestCatalogListing(t *testing.T) {
	cat := &fakeCatalog{tracks: []models.Track{
		{ID: "a", Title: "One"},
		{ID: "b", Title: "Two"},
	}}
	ts := testServer(t, &fakeController{}, cat)

	var body struct {
		Count  int            `json:"count"`
		Tracks []models.Track `json:"tracks"`
	}
	getJSON(t, ts.URL+"/api/v1/catalog", &body)
	if body.Count != 2 || len(body.Tracks) != 2 {
		t.Errorf("catalog = %+v", body)
	}
}

func TestTransportControls(t *testing.T) {
	ctrl := &fakeController{}
	ts := testServer(t, ctrl, &fakeCatalog{})

	if code := postJSON(t, ts.URL+"/api/v1/skip"); code != http.StatusAccepted {
		t.Errorf("skip status = %d", code)
	}
	if code := postJSON(t, ts.URL+"/api/v1/pause"); code != http.StatusOK {
		t.Errorf("pause status = %d", code)
	}
	if code := postJSON(t, ts.URL+"/api/v1/resume"); code != http.StatusOK {
		t.Errorf("resume status = %d", code)
	}

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if ctrl.skips != 1 || ctrl.pauses != 1 || ctrl.resumes != 1 {
		t.Errorf("calls = %d/%d/%d, want 1/1/1", ctrl.skips, ctrl.pauses, ctrl.resumes)
	}
}

func TestControlsRejectGet(t *testing.T) {
	ts := testServer(t, &fakeController{}, &fakeCatalog{})
	if code := getJSON(t, ts.URL+"/api/v1/skip", nil); code != http.StatusMethodNotAllowed {
		t.Errorf("GET /skip = %d, want 405", code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := testServer(t, &fakeController{}, &fakeCatalog{})
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", resp.StatusCode)
	}
}
