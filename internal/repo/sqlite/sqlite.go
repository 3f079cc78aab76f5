package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hamed0406/downdetector/internal/domain"
	"github.com/hamed0406/downdetector/internal/repo"
)

var _ repo.EventStore = (*Store)(nil)

// timeLayout is fixed width so text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS downtime_events (
  id          TEXT PRIMARY KEY,
  started_at  TEXT NOT NULL,
  ended_at    TEXT NOT NULL,
  duration_ms INTEGER NOT NULL,
  recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_downtime_events_ended ON downtime_events(ended_at);
`

// Store keeps downtime history in a single sqlite file.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; also keeps ":memory:" to a single database
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Append(ctx context.Context, rec *repo.Record) error {
	repo.Prepare(rec)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO downtime_events (id, started_at, ended_at, duration_ms, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Event.Start.UTC().Format(timeLayout),
		rec.Event.End.UTC().Format(timeLayout),
		rec.Event.Duration.Milliseconds(),
		rec.RecordedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert downtime event: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]repo.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, ended_at, recorded_at
		   FROM downtime_events
		  ORDER BY ended_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list downtime events: %w", err)
	}
	defer rows.Close()

	var out []repo.Record
	for rows.Next() {
		var id, startS, endS, recS string
		if err := rows.Scan(&id, &startS, &endS, &recS); err != nil {
			return nil, fmt.Errorf("scan downtime event: %w", err)
		}
		start, err := time.Parse(time.RFC3339Nano, startS)
		if err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		end, err := time.Parse(time.RFC3339Nano, endS)
		if err != nil {
			return nil, fmt.Errorf("parse ended_at: %w", err)
		}
		recorded, err := time.Parse(time.RFC3339Nano, recS)
		if err != nil {
			return nil, fmt.Errorf("parse recorded_at: %w", err)
		}
		out = append(out, repo.Record{
			ID:         id,
			Event:      domain.NewDowntimeEvent(start, end),
			RecordedAt: recorded,
		})
	}
	return out, rows.Err()
}
