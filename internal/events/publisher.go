package events

import (
	"context"
	"fmt"
	"time"

	"debatetimer/internal/session"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	defaultMaxLen  = 10000
	publishTimeout = 2 * time.Second
)

// Publisher appends events to the debate streams.
type Publisher struct {
	rdb    *redis.Client
	maxLen int64
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb, maxLen: defaultMaxLen}
}

// Publish adds an event to the debate stream, trimming old entries.
func (p *Publisher) Publish(ctx context.Context, debateID string, event *Event) error {
	if p == nil || p.rdb == nil {
		return ErrRedisUnavailable
	}

	eventData, err := MarshalEvent(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey(debateID),
		Values: map[string]interface{}{
			"data": eventData,
		},
		MaxLen: p.maxLen,
		Approx: true,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// PublishPayload wraps a payload in an event and publishes it.
func (p *Publisher) PublishPayload(ctx context.Context, debateID, eventType string, payload interface{}) error {
	event, err := NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, debateID, event)
}

// HandleEvent publishes session events. Failures are logged only.
func (p *Publisher) HandleEvent(ctx context.Context, ev session.Event) {
	event, err := FromSession(ev)
	if err != nil {
		log.Error().Err(err).Str("debate_id", ev.DebateID).Msg("encode session event")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, ev.DebateID, event); err != nil {
		log.Warn().Err(err).Str("debate_id", ev.DebateID).Str("event", event.Type).Msg("publish session event")
	}
}
