// Package testutil provides an in-memory database/sql connector that speaks
// the handful of statements the postgres result store issues against its
// results table.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

// Statement classifies a SQL statement the store sends.
type Statement string

// Statements understood by ResultsConn.
const (
	StmtPing         Statement = "ping"
	StmtCreateTable  Statement = "create-table"
	StmtUpsert       Statement = "upsert"
	StmtSelectResult Statement = "select-result"
	StmtSelectTokens Statement = "select-tokens"
	StmtDelete       Statement = "delete"
)

// ResultRow is one row of the results table.
type ResultRow struct {
	Payload   []byte
	CreatedAt time.Time
}

// ResultsConn keeps the results table in memory and logs every statement.
// Fail makes the named statement kinds return the given error.
type ResultsConn struct {
	mu   sync.Mutex
	Log  []Statement
	Rows map[string]ResultRow
	Fail map[Statement]error
}

// NewResultsDB returns a sql.DB whose every connection is conn.
func NewResultsDB() (*sql.DB, *ResultsConn) {
	conn := &ResultsConn{Rows: make(map[string]ResultRow), Fail: make(map[Statement]error)}
	return sql.OpenDB(connector{conn: conn}), conn
}

// Row returns the row stored under token.
func (c *ResultsConn) Row(token string) (ResultRow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.Rows[token]
	return r, ok
}

// Executed reports whether a statement of kind st was issued.
func (c *ResultsConn) Executed(st Statement) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Contains(c.Log, st)
}

type connector struct{ conn *ResultsConn }

func (k connector) Connect(context.Context) (driver.Conn, error) { return k.conn, nil }
func (k connector) Driver() driver.Driver                       { return resultsDriver{k.conn} }

type resultsDriver struct{ conn *ResultsConn }

func (d resultsDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func classify(query string) (Statement, error) {
	f := strings.Fields(strings.ToUpper(query))
	if len(f) < 2 {
		return "", fmt.Errorf("unsupported statement %q", query)
	}
	switch {
	case f[0] == "CREATE" && f[1] == "TABLE":
		return StmtCreateTable, nil
	case f[0] == "INSERT":
		return StmtUpsert, nil
	case f[0] == "DELETE":
		return StmtDelete, nil
	case f[0] == "SELECT" && f[1] == "PAYLOAD":
		return StmtSelectResult, nil
	case f[0] == "SELECT" && f[1] == "TOKEN":
		return StmtSelectTokens, nil
	}
	return "", fmt.Errorf("unsupported statement %q", query)
}

// record logs st and returns the configured failure, if any. Callers hold mu.
func (c *ResultsConn) record(st Statement) error {
	c.Log = append(c.Log, st)
	return c.Fail[st]
}

// Ping implements driver.Pinger.
func (c *ResultsConn) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record(StmtPing)
}

// ExecContext implements driver.ExecerContext.
func (c *ResultsConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	st, err := classify(query)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(st); err != nil {
		return nil, err
	}
	switch st {
	case StmtCreateTable:
		return driver.RowsAffected(0), nil
	case StmtUpsert:
		if len(args) != 3 {
			return nil, fmt.Errorf("upsert wants 3 args, got %d", len(args))
		}
		token, _ := args[0].Value.(string)
		payload, _ := args[1].Value.([]byte)
		at, _ := args[2].Value.(time.Time)
		c.Rows[token] = ResultRow{Payload: slices.Clone(payload), CreatedAt: at}
		return driver.RowsAffected(1), nil
	case StmtDelete:
		token, _ := firstArg(args).(string)
		if _, ok := c.Rows[token]; !ok {
			return driver.RowsAffected(0), nil
		}
		delete(c.Rows, token)
		return driver.RowsAffected(1), nil
	}
	return nil, fmt.Errorf("%s is not an exec statement", st)
}

// QueryContext implements driver.QueryerContext.
func (c *ResultsConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	st, err := classify(query)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(st); err != nil {
		return nil, err
	}
	switch st {
	case StmtSelectResult:
		token, _ := firstArg(args).(string)
		rows := &memRows{cols: []string{"payload"}}
		if r, ok := c.Rows[token]; ok {
			rows.values = [][]driver.Value{{slices.Clone(r.Payload)}}
		}
		return rows, nil
	case StmtSelectTokens:
		rows := &memRows{cols: []string{"token"}}
		for _, tok := range slices.Sorted(maps.Keys(c.Rows)) {
			rows.values = append(rows.values, []driver.Value{tok})
		}
		return rows, nil
	}
	return nil, fmt.Errorf("%s is not a query", st)
}

func firstArg(args []driver.NamedValue) any {
	if len(args) == 0 {
		return nil
	}
	return args[0].Value
}

// Prepare implements driver.Conn. Every statement goes through the
// ExecerContext and QueryerContext fast paths instead.
func (c *ResultsConn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("prepare not supported: %s", query)
}

// Close implements driver.Conn.
func (c *ResultsConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *ResultsConn) Begin() (driver.Tx, error) { return noTx{}, nil }

type noTx struct{}

func (noTx) Commit() error   { return nil }
func (noTx) Rollback() error { return nil }

type memRows struct {
	cols   []string
	values [][]driver.Value
	next   int
}

func (r *memRows) Columns() []string { return r.cols }
func (r *memRows) Close() error      { return nil }

func (r *memRows) Next(dest []driver.Value) error {
	if r.next >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.next])
	r.next++
	return nil
}
