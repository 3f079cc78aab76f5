package notify

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"
)

func TestRedis_PublishesJSON(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set; skipping Redis integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, err := NewRedis(ctx, url, "downdetector:test")
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer r.Close()

	sub := r.client.Subscribe(ctx, "downdetector:test")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := r.Send(ctx, TitleDown, "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	var got redisMessage
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Title != TitleDown || got.Text != "hello" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestNewRedis_BadURL(t *testing.T) {
	if _, err := NewRedis(context.Background(), "not a url", ""); err == nil {
		t.Fatalf("expected error for invalid URL")
	}
}
