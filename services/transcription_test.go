package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestTranscriber(url string) *Transcriber {
	return NewTranscriber(TranscriberConfig{
		BaseURL:   url,
		APIKey:    "sk-test",
		Language:  "zh",
		StreamURL: url + "/stream",
		BaseDelay: time.Millisecond,
		MaxDelay:  time.Millisecond,
	}, nil)
}

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		if r.FormValue("model") != "whisper-1" || r.FormValue("language") != "zh" {
			t.Errorf("form = %v", r.MultipartForm.Value)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		if hdr.Filename != "clip.webm" || string(data) != "RIFF" {
			t.Errorf("file = %s %q", hdr.Filename, data)
		}
		fmt.Fprint(w, `{"text":"  hello world "}`)
	}))
	defer srv.Close()

	text, err := newTestTranscriber(srv.URL).Transcribe(context.Background(), "clip.webm", strings.NewReader("RIFF"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("text = %q", text)
	}
}

func TestTranscribeRetriesTransientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		// the body must be resent in full on retry
		r.ParseMultipartForm(1 << 20)
		if r.FormValue("model") == "" {
			t.Error("retried request lost its body")
		}
		fmt.Fprint(w, `{"text":"ok"}`)
	}))
	defer srv.Close()

	text, err := newTestTranscriber(srv.URL).Transcribe(context.Background(), "", strings.NewReader("audio"))
	if err != nil || text != "ok" {
		t.Fatalf("Transcribe: %q, %v", text, err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestTranscribeGivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestTranscriber(srv.URL).Transcribe(context.Background(), "", strings.NewReader("audio"))
	if !errors.Is(err, ErrRateLimit) {
		t.Fatalf("expected ErrRateLimit, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestTranscribeClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"bad audio"}`)
	}))
	defer srv.Close()

	_, err := newTestTranscriber(srv.URL).Transcribe(context.Background(), "", strings.NewReader("audio"))
	if err == nil || !strings.Contains(err.Error(), "bad audio") {
		t.Fatalf("err = %v", err)
	}
}

func TestTranscriberUnconfigured(t *testing.T) {
	tr := NewTranscriber(TranscriberConfig{}, nil)
	if _, err := tr.Transcribe(context.Background(), "", strings.NewReader("")); !errors.Is(err, ErrTranscriberUnavailable) {
		t.Errorf("Transcribe: %v", err)
	}
	if err := tr.Stream(context.Background(), "", strings.NewReader(""), func(string) error { return nil }); !errors.Is(err, ErrTranscriberUnavailable) {
		t.Errorf("Stream: %v", err)
	}
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		if r.FormValue("stream") != "true" {
			t.Error("stream flag missing")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"text\":\"first\"}\n\n")
		fmt.Fprint(w, "data: not json\n\n")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"text\":\"second\"}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"text\":\"after done\"}\n\n")
	}))
	defer srv.Close()

	var got []string
	err := newTestTranscriber(srv.URL).Stream(context.Background(), "", strings.NewReader("audio"), func(text string) error {
		got = append(got, text)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if strings.Join(got, "|") != "first|second" {
		t.Fatalf("got %v", got)
	}
}

func TestStreamCallbackError(t *testing.T) {
	stop := errors.New("client gone")
	err := readEventStream(strings.NewReader("data: {\"text\":\"a\"}\n\ndata: {\"text\":\"b\"}\n\n"), func(string) error {
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("err = %v", err)
	}
}
