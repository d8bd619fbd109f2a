package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrTranscriberUnavailable = errors.New("transcription not configured")
	ErrRateLimit              = errors.New("rate limit exceeded (429)")
	ErrServerBusy             = errors.New("server busy (503)")
	ErrBadGateway             = errors.New("bad gateway (502)")
	ErrGatewayTimeout         = errors.New("gateway timeout (504)")
)

const streamDone = "[DONE]"

// TranscriberConfig configures the speech-to-text client.
type TranscriberConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Language  string
	StreamURL string

	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Transcriber talks to an OpenAI-compatible audio transcription API.
type Transcriber struct {
	cfg    TranscriberConfig
	client *http.Client
}

func NewTranscriber(cfg TranscriberConfig, client *http.Client) *Transcriber {
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &Transcriber{cfg: cfg, client: client}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe sends one audio file and returns its text.
func (t *Transcriber) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if t == nil || t.cfg.APIKey == "" || t.cfg.BaseURL == "" {
		return "", ErrTranscriberUnavailable
	}

	fields := map[string]string{"model": t.cfg.Model}
	if t.cfg.Language != "" {
		fields["language"] = t.cfg.Language
	}
	body, contentType, err := multipartBody(filename, audio, fields)
	if err != nil {
		return "", err
	}

	url := strings.TrimSuffix(t.cfg.BaseURL, "/") + "/audio/transcriptions"
	resp, err := t.doWithRetry(ctx, url, contentType, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription API error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out transcriptionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}

// Stream sends audio to the live transcription endpoint and calls onText for
// every partial result until the stream reports completion.
func (t *Transcriber) Stream(ctx context.Context, filename string, audio io.Reader, onText func(string) error) error {
	if t == nil || t.cfg.StreamURL == "" {
		return ErrTranscriberUnavailable
	}

	body, contentType, err := multipartBody(filename, audio, map[string]string{
		"model":  t.cfg.Model,
		"stream": "true",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.StreamURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/event-stream")
	if t.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("transcription API error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return readEventStream(resp.Body, onText)
}

// readEventStream parses "data:" lines. Undecodable events are skipped.
func readEventStream(r io.Reader, onText func(string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == streamDone {
			return nil
		}

		var chunk transcriptionResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			log.Debug().Err(err).Str("data", data).Msg("skipping transcription event")
			continue
		}
		if err := onText(chunk.Text); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func multipartBody(filename string, audio io.Reader, fields map[string]string) ([]byte, string, error) {
	if filename == "" {
		filename = "audio.webm"
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, "", fmt.Errorf("read audio: %w", err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// doWithRetry posts body, retrying transport errors and 429/502/503/504 with
// exponential backoff.
func (t *Transcriber) doWithRetry(ctx context.Context, url, contentType string, body []byte) (*http.Response, error) {
	var lastErr error
	delay := t.cfg.BaseDelay

	for attempt := 0; attempt < t.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				delay = min(delay*2, t.cfg.MaxDelay)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)

		resp, err := t.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		if shouldRetryStatus(resp.StatusCode) {
			resp.Body.Close()
			lastErr = statusError(resp.StatusCode)
			log.Warn().Err(lastErr).Int("attempt", attempt+1).Msg("transcription request retrying")
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("after %d attempts: %w", t.cfg.MaxAttempts, lastErr)
}

func shouldRetryStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func statusError(code int) error {
	switch code {
	case http.StatusTooManyRequests:
		return ErrRateLimit
	case http.StatusBadGateway:
		return ErrBadGateway
	case http.StatusServiceUnavailable:
		return ErrServerBusy
	case http.StatusGatewayTimeout:
		return ErrGatewayTimeout
	default:
		return fmt.Errorf("HTTP %d", code)
	}
}
