package events

import (
	"encoding/json"
	"fmt"
	"time"

	"debatetimer/internal/clock"
	"debatetimer/internal/session"
)

// Event types that do not come from the session runner.
const (
	TypeTranscriptAdded = "transcript.added"
	TypeSuggestionAdded = "suggestion.added"
	TypeError           = "error"
)

// Event is the envelope written to the debate stream and sent to clients.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// ClockPayload carries a session event.
type ClockPayload struct {
	Snapshot clock.Snapshot `json:"snapshot"`
	From     *clock.Phase   `json:"from,omitempty"`
	To       *clock.Phase   `json:"to,omitempty"`
	Key      string         `json:"key,omitempty"`
	Aborted  bool           `json:"aborted,omitempty"`
}

// TranscriptPayload announces a stored transcript.
type TranscriptPayload struct {
	ID       string `json:"id"`
	Speaker  string `json:"speaker"`
	PhaseID  string `json:"phaseId"`
	Text     string `json:"text"`
	Duration int    `json:"duration"`
}

// SuggestionPayload announces a generated suggestion.
type SuggestionPayload struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ErrorPayload answers a rejected client message.
type ErrorPayload struct {
	Message string `json:"message"`
}

// ClientMessage is a control message sent by a websocket client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SelectPayload is the payload of a "select" control message.
type SelectPayload struct {
	Key string `json:"key"`
}

// NewEvent creates a new event stamped with the current time.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		Type:      eventType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// FromSession converts a session event into a stream event.
func FromSession(ev session.Event) (*Event, error) {
	payloadBytes, err := json.Marshal(ClockPayload{
		Snapshot: ev.Snapshot,
		From:     ev.From,
		To:       ev.To,
		Key:      ev.Key,
		Aborted:  ev.Aborted,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", ev.Type, err)
	}
	return &Event{
		Type:      string(ev.Type),
		Payload:   payloadBytes,
		Timestamp: ev.At.UnixMilli(),
	}, nil
}

// MarshalEvent marshals an event to the JSON string stored in the stream.
func MarshalEvent(event *Event) (string, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalEvent parses a JSON string into an Event.
func UnmarshalEvent(data string) (*Event, error) {
	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, err
	}
	if event.Type == "" {
		return nil, fmt.Errorf("event has no type")
	}
	return &event, nil
}
