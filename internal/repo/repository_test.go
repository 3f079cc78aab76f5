package repo_test

import (
	"testing"

	"github.com/hamed0406/downdetector/internal/repo"
	"github.com/hamed0406/downdetector/internal/repo/memory"
	pg "github.com/hamed0406/downdetector/internal/repo/postgres"
	"github.com/hamed0406/downdetector/internal/repo/sqlite"
)

// Compile-time interface satisfaction checks.
// Using external test package avoids import cycle.
func TestInterfaceSatisfaction(t *testing.T) {
	var _ repo.EventStore = memory.New()
	var _ repo.EventStore = (*pg.Store)(nil)
	var _ repo.EventStore = (*sqlite.Store)(nil)
}

func TestPrepare_FillsIDAndTime(t *testing.T) {
	rec := &repo.Record{}
	repo.Prepare(rec)
	if rec.ID == "" || rec.RecordedAt.IsZero() {
		t.Fatalf("expected generated fields, got %+v", rec)
	}

	keep := &repo.Record{ID: "fixed"}
	repo.Prepare(keep)
	if keep.ID != "fixed" {
		t.Fatalf("existing ID overwritten: %q", keep.ID)
	}
}
