package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"debatetimer/internal/events"
	"debatetimer/internal/session"

	"github.com/rs/zerolog/log"
)

// Hub tracks the clients watching each debate.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{})}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.debateID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[c.debateID] = room
	}
	room[c] = struct{}{}
	log.Debug().Str("debate_id", c.debateID).Int("clients", len(room)).Msg("client joined")
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.debateID]
	if !ok {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	close(c.send)
	if len(room) == 0 {
		delete(h.rooms, c.debateID)
	}
	log.Debug().Str("debate_id", c.debateID).Int("clients", len(room)).Msg("client left")
}

// Count returns the number of clients watching a debate.
func (h *Hub) Count(debateID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[debateID])
}

// BroadcastToDebate sends an event to every client of a debate. Clients whose
// send buffer is full are dropped.
func (h *Hub) BroadcastToDebate(debateID string, event *events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("encode broadcast")
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.rooms[debateID] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		log.Warn().Str("debate_id", debateID).Msg("dropping slow client")
		h.unregister(c)
	}
}

// PublishPayload broadcasts a payload to the local clients of a debate. It is
// the notifier used when no Redis stream is configured.
func (h *Hub) PublishPayload(_ context.Context, debateID, eventType string, payload interface{}) error {
	event, err := events.NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	h.BroadcastToDebate(debateID, event)
	return nil
}

// HandleEvent forwards session events straight to local clients.
func (h *Hub) HandleEvent(_ context.Context, ev session.Event) {
	event, err := events.FromSession(ev)
	if err != nil {
		log.Error().Err(err).Str("debate_id", ev.DebateID).Msg("convert session event")
		return
	}
	h.BroadcastToDebate(ev.DebateID, event)
}
