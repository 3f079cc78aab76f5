package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/downdetector/internal/domain"
)

// Record is a closed downtime interval as kept in durable history.
type Record struct {
	ID         string               `json:"id"`
	Event      domain.DowntimeEvent `json:"event"`
	RecordedAt time.Time            `json:"recorded_at"`
}

// EventStore is the port for durable downtime history.
type EventStore interface {
	// Append stores rec, filling ID and RecordedAt when they are empty.
	Append(ctx context.Context, rec *Record) error
	// List returns records newest first.
	List(ctx context.Context) ([]Record, error)
}

// Prepare fills the generated fields of rec.
func Prepare(rec *Record) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
}
