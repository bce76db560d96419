package testutil

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResultsConnRoundTrip(t *testing.T) {
	db, conn := NewResultsDB()
	defer func() { _ = db.Close() }()
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for _, tok := range []string{"b", "a"} {
		if _, err := db.ExecContext(ctx, `INSERT INTO results (token, payload, created_at) VALUES ($1, $2, $3)`, tok, []byte("p-"+tok), at); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	var payload []byte
	if err := db.QueryRowContext(ctx, `SELECT payload FROM results WHERE token = $1`, "b").Scan(&payload); err != nil || string(payload) != "p-b" {
		t.Fatalf("select: %q %v", payload, err)
	}
	rows, err := db.QueryContext(ctx, `SELECT token FROM results ORDER BY token`)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	var toks []string
	for rows.Next() {
		var tok string
		_ = rows.Scan(&tok)
		toks = append(toks, tok)
	}
	_ = rows.Close()
	if len(toks) != 2 || toks[0] != "a" {
		t.Fatalf("tokens = %v", toks)
	}
	res, err := db.ExecContext(ctx, `DELETE FROM results WHERE token = $1`, "zzz")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n, _ := res.RowsAffected(); n != 0 {
		t.Fatalf("rows affected = %d", n)
	}
	if r, ok := conn.Row("a"); !ok || !r.CreatedAt.Equal(at) {
		t.Fatalf("row a = %+v %v", r, ok)
	}
	if !conn.Executed(StmtSelectTokens) || conn.Executed(StmtCreateTable) {
		t.Fatalf("log = %v", conn.Log)
	}
}

func TestResultsConnFailures(t *testing.T) {
	db, conn := NewResultsDB()
	defer func() { _ = db.Close() }()
	boom := errors.New("boom")
	conn.Fail[StmtSelectResult] = boom
	var payload []byte
	if err := db.QueryRowContext(context.Background(), `SELECT payload FROM results WHERE token = $1`, "x").Scan(&payload); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := db.ExecContext(context.Background(), `VACUUM`); err == nil {
		t.Fatalf("expected unsupported statement error")
	}
}
