package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hamed0406/downdetector/internal/repo"
)

type Store struct {
	mu      sync.RWMutex
	records []repo.Record
}

func New() *Store {
	return &Store{records: make([]repo.Record, 0, 128)}
}

func (m *Store) Append(ctx context.Context, rec *repo.Record) error {
	repo.Prepare(rec)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *rec)
	return nil
}

func (m *Store) List(ctx context.Context) ([]repo.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]repo.Record, len(m.records))
	copy(out, m.records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Event.End.After(out[j].Event.End)
	})
	return out, nil
}
