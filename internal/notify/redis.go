package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel transitions are published on.
const DefaultChannel = "downdetector:transitions"

// Redis publishes each notification as JSON on a pub/sub channel, for
// dashboards or other services that want live transitions.
type Redis struct {
	client  *redis.Client
	channel string
}

type redisMessage struct {
	Title  string    `json:"title"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// NewRedis connects to redisURL and verifies the connection.
func NewRedis(ctx context.Context, redisURL, channel string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewRedisWithClient(client, channel), nil
}

func NewRedisWithClient(client *redis.Client, channel string) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{client: client, channel: channel}
}

func (r *Redis) Send(ctx context.Context, title, text string) error {
	data, err := json.Marshal(redisMessage{Title: title, Text: text, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }
