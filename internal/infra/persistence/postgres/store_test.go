package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"pathwaycore/internal/infra/persistence/persistencetest"
	"pathwaycore/internal/infra/persistence/postgres/testutil"
	"pathwaycore/internal/result"
)

func openStub(t *testing.T) (*Store, *testutil.ResultsConn) {
	t.Helper()
	db, conn := testutil.NewResultsDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	s, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, conn
}

func TestStoreContract(t *testing.T) {
	persistencetest.Run(t, func(t *testing.T) result.Repository {
		s, _ := openStub(t)
		return s
	})
}

func TestNewStoreCreatesResultsTable(t *testing.T) {
	s, conn := openStub(t)
	if s.DB() == nil {
		t.Fatalf("expected db handle")
	}
	if len(conn.Log) < 2 || conn.Log[0] != testutil.StmtPing || conn.Log[1] != testutil.StmtCreateTable {
		t.Fatalf("log = %v", conn.Log)
	}
}

func TestSaveWritesRow(t *testing.T) {
	s, conn := openStub(t)
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }
	if err := s.Save(context.Background(), "tok", []byte(`{"version":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	row, ok := conn.Row("tok")
	if !ok || !row.CreatedAt.Equal(at) || string(row.Payload) != `{"version":1}` {
		t.Fatalf("row = %+v %v", row, ok)
	}
}

func TestNewStorePingFailure(t *testing.T) {
	db, conn := testutil.NewResultsDB()
	conn.Fail[testutil.StmtPing] = errors.New("connection refused")
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), "postgres://example"); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping error, got %v", err)
	}
}

func TestNewStoreOpenFailure(t *testing.T) {
	boom := errors.New("boom")
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, boom })
	defer restore()
	if _, err := NewStore(context.Background(), ""); !errors.Is(err, boom) {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestQueryFailuresAreWrapped(t *testing.T) {
	s, conn := openStub(t)
	boom := errors.New("boom")
	for _, st := range []testutil.Statement{testutil.StmtSelectResult, testutil.StmtSelectTokens, testutil.StmtUpsert, testutil.StmtDelete} {
		conn.Fail[st] = boom
	}
	if _, err := s.Load(context.Background(), "tok"); err == nil || errors.Is(err, result.ErrNotFound) {
		t.Fatalf("expected query error, got %v", err)
	}
	if _, err := s.Tokens(context.Background()); err == nil {
		t.Fatalf("expected tokens error")
	}
	if err := s.Save(context.Background(), "tok", []byte(`{}`)); !errors.Is(err, boom) {
		t.Fatalf("expected save error, got %v", err)
	}
	if _, err := s.Delete(context.Background(), "tok"); !errors.Is(err, boom) {
		t.Fatalf("expected delete error, got %v", err)
	}
}
