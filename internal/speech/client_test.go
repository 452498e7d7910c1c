/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// makeWAV builds a minimal RIFF/WAVE body with 16-bit PCM samples.
func makeWAV(t *testing.T, sampleRate, channels int, samples []int16) []byte {
	t.Helper()

	data := new(bytes.Buffer)
	for _, s := range samples {
		binary.Write(data, binary.LittleEndian, s)
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+data.Len()))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())
	return buf.Bytes()
}

func ttsServer(t *testing.T, wavBody []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req synthesizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Text == "" || req.Voice == "" {
			t.Errorf("incomplete request: %+v", req)
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(wavBody)
	}))
}

func TestSynthesizeStereoPassthrough(t *testing.T) {
	samples := []int16{100, -100, 200, -200, 300, -300}
	srv := ttsServer(t, makeWAV(t, 44100, 2, samples))
	defer srv.Close()

	c := NewClient(srv.URL, 44100, 2, 5*time.Second, zerolog.Nop())
	buf, err := c.Synthesize(context.Background(), "hello listeners", "freya")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if buf.SampleRate != 44100 || buf.Channels != 2 {
		t.Fatalf("format = %d/%d, want 44100/2", buf.SampleRate, buf.Channels)
	}
	for i, want := range samples {
		if buf.Samples[i] != want {
			t.Fatalf("sample %d = %d, want %d", i, buf.Samples[i], want)
		}
	}
}

func TestSynthesizeMonoUpmix(t *testing.T) {
	srv := ttsServer(t, makeWAV(t, 44100, 1, []int16{1000, 2000, 3000}))
	defer srv.Close()

	c := NewClient(srv.URL, 44100, 2, 5*time.Second, zerolog.Nop())
	buf, err := c.Synthesize(context.Background(), "hello", "freya")
	if err != nil {
		t.Fatal(err)
	}
	want := []int16{1000, 1000, 2000, 2000, 3000, 3000}
	if len(buf.Samples) != len(want) {
		t.Fatalf("len = %d, want %d", len(buf.Samples), len(want))
	}
	for i := range want {
		if buf.Samples[i] != want[i] {
			t.Fatalf("sample %d = %d, want %d", i, buf.Samples[i], want[i])
		}
	}
}

func TestSynthesizeStereoDownmix(t *testing.T) {
	srv := ttsServer(t, makeWAV(t, 44100, 2, []int16{1000, 3000, -500, 500}))
	defer srv.Close()

	c := NewClient(srv.URL, 44100, 1, 5*time.Second, zerolog.Nop())
	buf, err := c.Synthesize(context.Background(), "hello", "freya")
	if err != nil {
		t.Fatal(err)
	}
	want := []int16{2000, 0}
	for i := range want {
		if buf.Samples[i] != want[i] {
			t.Fatalf("sample %d = %d, want %d", i, buf.Samples[i], want[i])
		}
	}
}

func TestSynthesizeSampleRateMismatch(t *testing.T) {
	srv := ttsServer(t, makeWAV(t, 22050, 1, []int16{1, 2, 3}))
	defer srv.Close()

	c := NewClient(srv.URL, 44100, 2, 5*time.Second, zerolog.Nop())
	if _, err := c.Synthesize(context.Background(), "hello", "freya"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestSynthesizeInvalidBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not audio"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 44100, 2, 5*time.Second, zerolog.Nop())
	if _, err := c.Synthesize(context.Background(), "hello", "freya"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestSynthesizeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "voice not found", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 44100, 2, 5*time.Second, zerolog.Nop())
	if _, err := c.Synthesize(context.Background(), "hello", "loki"); err == nil {
		t.Fatal("expected error on 400 response")
	}
}
