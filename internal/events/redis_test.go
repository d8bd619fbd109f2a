package events

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"debatetimer/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestRateLimiterWindow(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	rl := NewRateLimiter(rdb, RateLimitConfig{Max: 2, Window: time.Minute})

	for i, want := range []bool{true, true, false, false} {
		ok, err := rl.Allow(ctx, "suggest", "d1")
		if err != nil {
			t.Fatalf("Allow #%d: %v", i, err)
		}
		if ok != want {
			t.Fatalf("Allow #%d = %v, want %v", i, ok, want)
		}
	}
	if ok, _ := rl.Allow(ctx, "suggest", "d2"); !ok {
		t.Fatal("another debate shares the window")
	}
	if ttl := mr.TTL(rateKey("suggest", "d1")); ttl != time.Minute {
		t.Fatalf("window ttl = %v", ttl)
	}

	mr.FastForward(time.Minute)
	if ok, err := rl.Allow(ctx, "suggest", "d1"); err != nil || !ok {
		t.Fatalf("after the window: %v, %v", ok, err)
	}
}

func TestRateLimiterUnreachable(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	if _, err := NewRateLimiter(rdb, RateLimitConfig{}).Allow(context.Background(), "suggest", "d1"); err == nil {
		t.Fatal("expected an error from a closed server")
	}
}

func TestPublisherAppendsToStream(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	p := NewPublisher(rdb)

	if err := p.PublishPayload(ctx, "d1", TypeTranscriptAdded, TranscriptPayload{ID: "t1", Speaker: "negative"}); err != nil {
		t.Fatalf("PublishPayload: %v", err)
	}
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p.HandleEvent(ctx, session.Event{Type: session.EventStateChanged, DebateID: "d1", At: at})

	msgs, err := rdb.XRange(ctx, StreamKey("d1"), "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("stream holds %d entries", len(msgs))
	}

	first, err := UnmarshalEvent(msgs[0].Values["data"].(string))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var tp TranscriptPayload
	if err := json.Unmarshal(first.Payload, &tp); err != nil || first.Type != TypeTranscriptAdded || tp.ID != "t1" {
		t.Fatalf("first entry = %+v, %+v, %v", first, tp, err)
	}
	second, _ := UnmarshalEvent(msgs[1].Values["data"].(string))
	if second.Type != string(session.EventStateChanged) || second.Timestamp != at.UnixMilli() {
		t.Fatalf("second entry = %+v", second)
	}
}

func consuming(sc *StreamConsumer, debateID string) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	_, ok := sc.cancels[debateID]
	return ok
}

func TestStreamConsumerForwardsNewEntries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	_, rdb := newRedis(t)

	p := NewPublisher(rdb)
	hub := &fakeHub{}
	sc := NewStreamConsumer(ctx, rdb, hub)

	// Leftovers of an earlier run of the same debate.
	stale := &Event{Type: string(session.EventSessionEnded), Payload: json.RawMessage(`{}`)}
	if err := p.Publish(ctx, "d1", stale); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	started := session.Event{Type: session.EventSessionStarted, DebateID: "d1"}
	sc.HandleEvent(ctx, started)
	p.HandleEvent(ctx, started)
	if !consuming(sc, "d1") {
		t.Fatal("consumer did not start on session.started")
	}
	if err := sc.Start("d1"); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	if err := p.PublishPayload(ctx, "d1", TypeTranscriptAdded, TranscriptPayload{ID: "t1"}); err != nil {
		t.Fatalf("PublishPayload: %v", err)
	}
	p.HandleEvent(ctx, session.Event{Type: session.EventSessionEnded, DebateID: "d1"})

	want := []string{string(session.EventSessionStarted), TypeTranscriptAdded, string(session.EventSessionEnded)}
	waitUntil(t, func() bool { return len(hub.types()) >= len(want) })
	if got := hub.types(); !reflect.DeepEqual(got, want) {
		t.Fatalf("forwarded %v, want %v", got, want)
	}
	waitUntil(t, func() bool { return !consuming(sc, "d1") })

	group := GroupKey("d1", sc.instanceID)
	pending, err := rdb.XPending(ctx, StreamKey("d1"), group).Result()
	if err != nil {
		t.Fatalf("XPending: %v", err)
	}
	if pending.Count != 0 {
		t.Fatalf("%d entries left unacknowledged", pending.Count)
	}
}
