package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/downdetector/internal/domain"
	"github.com/hamed0406/downdetector/internal/repo"
)

var _ repo.EventStore = (*Store)(nil)

// Schema is applied by EnsureSchema; it is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS downtime_events (
  id          TEXT PRIMARY KEY,
  started_at  TIMESTAMPTZ NOT NULL,
  ended_at    TIMESTAMPTZ NOT NULL,
  duration_ms BIGINT NOT NULL CHECK (duration_ms >= 0),
  recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_downtime_events_ended ON downtime_events (ended_at DESC);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Append(ctx context.Context, rec *repo.Record) error {
	repo.Prepare(rec)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO downtime_events (id, started_at, ended_at, duration_ms, recorded_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.Event.Start, rec.Event.End, rec.Event.Duration.Milliseconds(), rec.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert downtime event: %w", err)
	}
	s.log.Debug("downtime_event_stored", zap.String("id", rec.ID))
	return nil
}

func (s *Store) List(ctx context.Context) ([]repo.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, started_at, ended_at, recorded_at
		   FROM downtime_events
		  ORDER BY ended_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list downtime events: %w", err)
	}
	defer rows.Close()

	var out []repo.Record
	for rows.Next() {
		var (
			id                   string
			start, end, recorded time.Time
		)
		if err := rows.Scan(&id, &start, &end, &recorded); err != nil {
			return nil, fmt.Errorf("scan downtime event: %w", err)
		}
		out = append(out, repo.Record{
			ID:         id,
			Event:      domain.NewDowntimeEvent(start, end),
			RecordedAt: recorded,
		})
	}
	return out, rows.Err()
}
