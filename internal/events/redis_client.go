package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var ErrRedisUnavailable = errors.New("redis client not available")

// Connect opens a Redis client and checks the connection.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

// StreamKey is the stream holding a debate's events.
func StreamKey(debateID string) string {
	return fmt.Sprintf("debate:%s:events", debateID)
}

// GroupKey is the consumer group of one server instance on a debate stream.
// Every instance reads the whole stream.
func GroupKey(debateID, instanceID string) string {
	return fmt.Sprintf("debate:%s:group:%s", debateID, instanceID)
}
