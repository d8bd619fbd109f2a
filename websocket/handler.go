package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"debatetimer/db"
	"debatetimer/internal/clock"
	"debatetimer/internal/events"
	"debatetimer/internal/session"
	"debatetimer/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Control messages accepted from clients.
const (
	MessageStart    = "start"
	MessagePause    = "pause"
	MessageSelect   = "select"
	MessageNext     = "next"
	MessageAbort    = "abort"
	MessageSnapshot = "snapshot"
)

// Handler upgrades debate connections and applies their control messages to
// the debate's timer session.
type Handler struct {
	debates  *services.DebateService
	hub      *Hub
	follower Follower
	upgrader websocket.Upgrader
}

// Follower starts feeding a debate's shared event stream into the hub.
type Follower interface {
	Start(debateID string) error
}

// NewHandler accepts every origin when allowedOrigins is empty.
func NewHandler(debates *services.DebateService, hub *Hub, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Handler{
		debates: debates,
		hub:     hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
	}
}

// Follow makes every new connection subscribe its debate through f.
func (h *Handler) Follow(f Follower) {
	h.follower = f
}

// ServeDebate handles GET /ws/debates/:id.
func (h *Handler) ServeDebate(c *gin.Context) {
	debateID := c.Param("id")
	if _, err := h.debates.Get(c.Request.Context(), debateID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "debate not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("debate_id", debateID).Msg("websocket upgrade")
		return
	}

	client := newClient(h.hub, conn, debateID)
	h.hub.register(client)
	go client.writePump()

	if h.follower != nil {
		if err := h.follower.Start(debateID); err != nil {
			log.Warn().Err(err).Str("debate_id", debateID).Msg("follow debate stream")
		}
	}

	if sess, err := h.debates.Session(debateID); err == nil {
		h.sendSnapshot(client, sess.Snapshot())
	}
	client.readPump(h.handleMessage)
}

func (h *Handler) handleMessage(c *Client, data []byte) {
	var msg events.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(c, "invalid message")
		return
	}

	if msg.Type == MessageStart {
		if _, err := h.debates.StartSession(context.Background(), c.debateID); err != nil {
			h.sendError(c, err.Error())
		}
		return
	}

	sess, err := h.debates.Session(c.debateID)
	if err != nil {
		h.sendError(c, err.Error())
		return
	}

	switch msg.Type {
	case MessagePause:
		_, err = sess.TogglePause()
	case MessageSelect:
		var p events.SelectPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.Key == "" {
			h.sendError(c, "select needs a key")
			return
		}
		_, err = sess.Select(p.Key)
	case MessageNext:
		_, _, err = sess.Advance()
	case MessageAbort:
		err = h.debates.StopSession(c.debateID)
	case MessageSnapshot:
		h.sendSnapshot(c, sess.Snapshot())
	default:
		h.sendError(c, "unknown message type "+msg.Type)
		return
	}
	if err != nil {
		h.sendError(c, err.Error())
	}
}

func (h *Handler) sendSnapshot(c *Client, snap clock.Snapshot) {
	h.send(c, string(session.EventStateChanged), events.ClockPayload{Snapshot: snap})
}

func (h *Handler) sendError(c *Client, message string) {
	h.send(c, events.TypeError, events.ErrorPayload{Message: message})
}

func (h *Handler) send(c *Client, eventType string, payload interface{}) {
	event, err := events.NewEvent(eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("encode reply")
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("encode reply")
		return
	}
	if !c.reply(data) {
		log.Warn().Str("debate_id", c.debateID).Str("type", eventType).Msg("reply dropped")
	}
}
