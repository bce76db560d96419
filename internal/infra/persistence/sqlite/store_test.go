package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pathwaycore/internal/infra/persistence/persistencetest"
	"pathwaycore/internal/result"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "nested", "results.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	persistencetest.Run(t, func(t *testing.T) result.Repository { return openTemp(t) })
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "results.db")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if s.Path() != path {
		t.Fatalf("path = %s", s.Path())
	}
	if err := s.Save(ctx, "tok", []byte(`{"version":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	got, err := reopened.Load(ctx, "tok")
	if err != nil || string(got) != `{"version":1}` {
		t.Fatalf("load after reopen = %s, %v", got, err)
	}
}

func TestSaveRecordsCreationTime(t *testing.T) {
	s := openTemp(t)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }
	if err := s.Save(context.Background(), "tok", []byte(`{}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	var created string
	if err := s.DB().QueryRow(`SELECT created_at FROM results WHERE token = ?`, "tok").Scan(&created); err != nil {
		t.Fatalf("select: %v", err)
	}
	if created != "2024-05-01T08:00:00Z" {
		t.Fatalf("created_at = %s", created)
	}
}
