package events

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"debatetimer/internal/session"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	readCount   = 100
	readBlock   = time.Second
	reclaimIdle = 30 * time.Second
)

// Hub delivers stream events to the clients watching a debate.
type Hub interface {
	BroadcastToDebate(debateID string, event *Event)
}

// StreamConsumer reads debate streams through one consumer group per server
// instance and forwards every entry to the hub.
type StreamConsumer struct {
	rdb          *redis.Client
	ctx          context.Context
	instanceID   string
	consumerName string
	hub          Hub

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewStreamConsumer returns nil when rdb is nil.
func NewStreamConsumer(ctx context.Context, rdb *redis.Client, hub Hub) *StreamConsumer {
	if rdb == nil {
		return nil
	}

	hostname, _ := os.Hostname()
	instanceID := fmt.Sprintf("%s-%d", hostname, os.Getpid())

	return &StreamConsumer{
		rdb:          rdb,
		ctx:          ctx,
		instanceID:   instanceID,
		consumerName: "consumer-" + instanceID,
		hub:          hub,
		cancels:      make(map[string]context.CancelFunc),
	}
}

// Start begins consuming a debate stream. Starting an active debate is a no-op.
func (sc *StreamConsumer) Start(debateID string) error {
	if sc == nil || sc.rdb == nil {
		return ErrRedisUnavailable
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if _, ok := sc.cancels[debateID]; ok {
		return nil
	}

	streamKey := StreamKey(debateID)
	groupName := GroupKey(debateID, sc.instanceID)

	// New groups read only entries added from now on.
	err := sc.rdb.XGroupCreateMkStream(sc.ctx, streamKey, groupName, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(sc.ctx)
	sc.cancels[debateID] = cancel
	go sc.consumeLoop(ctx, debateID, streamKey, groupName)

	log.Info().Str("debate_id", debateID).Str("group", groupName).Msg("stream consumer started")
	return nil
}

// Stop cancels the consumer of a debate.
func (sc *StreamConsumer) Stop(debateID string) {
	if sc == nil {
		return
	}
	sc.mu.Lock()
	cancel, ok := sc.cancels[debateID]
	delete(sc.cancels, debateID)
	sc.mu.Unlock()

	if ok {
		cancel()
	}
}

// HandleEvent starts consuming when a session starts. It must observe before
// the publisher so the session.started entry lands after the group exists.
// The loop stops itself after forwarding the session.ended entry.
func (sc *StreamConsumer) HandleEvent(_ context.Context, ev session.Event) {
	if ev.Type != session.EventSessionStarted {
		return
	}
	if err := sc.Start(ev.DebateID); err != nil {
		log.Warn().Err(err).Str("debate_id", ev.DebateID).Msg("start stream consumer")
	}
}

func (sc *StreamConsumer) consumeLoop(ctx context.Context, debateID, streamKey, groupName string) {
	reclaimTicker := time.NewTicker(reclaimIdle)
	defer reclaimTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-reclaimTicker.C:
			sc.reclaimPendingMessages(ctx, debateID, streamKey, groupName)
		default:
		}

		streams, err := sc.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    groupName,
			Consumer: sc.consumerName,
			Streams:  []string{streamKey, ">"},
			Count:    readCount,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Str("debate_id", debateID).Msg("read debate stream")
			sleepCtx(ctx, time.Second)
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				if sc.handleMessage(ctx, debateID, streamKey, groupName, message) {
					return
				}
			}
		}
	}
}

// handleMessage forwards and acknowledges one entry and reports whether it
// ended the session.
func (sc *StreamConsumer) handleMessage(ctx context.Context, debateID, streamKey, groupName string, message redis.XMessage) bool {
	event, err := sc.processMessage(debateID, message)
	if err != nil {
		log.Warn().Err(err).Str("debate_id", debateID).Str("id", message.ID).Msg("skipping stream entry")
	}
	if err := sc.rdb.XAck(ctx, streamKey, groupName, message.ID).Err(); err != nil {
		log.Warn().Err(err).Str("debate_id", debateID).Str("id", message.ID).Msg("ack stream entry")
	}
	if event != nil && event.Type == string(session.EventSessionEnded) {
		sc.Stop(debateID)
		return true
	}
	return false
}

// processMessage decodes a stream entry and forwards it to the hub.
func (sc *StreamConsumer) processMessage(debateID string, message redis.XMessage) (*Event, error) {
	eventData, ok := message.Values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid message format: missing data field")
	}

	event, err := UnmarshalEvent(eventData)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	sc.hub.BroadcastToDebate(debateID, event)
	return event, nil
}

// reclaimPendingMessages claims entries another consumer read but never acked.
func (sc *StreamConsumer) reclaimPendingMessages(ctx context.Context, debateID, streamKey, groupName string) {
	pending, err := sc.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: streamKey,
		Group:  groupName,
		Start:  "-",
		End:    "+",
		Count:  readCount,
	}).Result()
	if err != nil {
		return
	}

	var stale []string
	for _, p := range pending {
		if p.Idle > reclaimIdle {
			stale = append(stale, p.ID)
		}
	}
	if len(stale) == 0 {
		return
	}

	claimed, err := sc.rdb.XClaim(ctx, &redis.XClaimArgs{
		Stream:   streamKey,
		Group:    groupName,
		Consumer: sc.consumerName,
		MinIdle:  reclaimIdle,
		Messages: stale,
	}).Result()
	if err != nil {
		log.Warn().Err(err).Str("debate_id", debateID).Msg("claim pending entries")
		return
	}
	for _, msg := range claimed {
		sc.handleMessage(ctx, debateID, streamKey, groupName, msg)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
