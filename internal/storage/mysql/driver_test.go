package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// stepKind identifies the driver call a scripted step answers.
type stepKind string

const (
	stepExec     stepKind = "exec"
	stepQuery    stepKind = "query"
	stepBegin    stepKind = "begin"
	stepCommit   stepKind = "commit"
	stepRollback stepKind = "rollback"
)

type step struct {
	kind     stepKind
	sql      string
	columns  []string
	rows     [][]driver.Value
	affected int64
	err      error
}

func expectExec(query string) step { return step{kind: stepExec, sql: query, affected: 1} }

func expectExecErr(query string, err error) step {
	return step{kind: stepExec, sql: query, err: err}
}

func expectQuery(query string, columns []string, rows ...[]driver.Value) step {
	return step{kind: stepQuery, sql: query, columns: columns, rows: rows}
}

func expectBegin() step  { return step{kind: stepBegin} }
func expectCommit() step { return step{kind: stepCommit} }

// script is a database/sql driver that answers calls from a fixed list of
// steps, in order, and records the arguments it was given.
type script struct {
	steps []step

	mu   sync.Mutex
	pos  int
	args [][]driver.Value
}

var scriptSeq atomic.Int32

func openScript(t *testing.T, steps ...step) (*sql.DB, *script) {
	t.Helper()

	s := &script{steps: steps}
	name := fmt.Sprintf("scaffold-mysql-script-%d", scriptSeq.Add(1))
	sql.Register(name, s)

	db, err := sql.Open(name, "")
	if err != nil {
		t.Fatalf("open scripted db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = db.Close()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.pos != len(s.steps) {
			t.Errorf("scripted db consumed %d of %d steps", s.pos, len(s.steps))
		}
	})
	return db, s
}

// argsAt returns the arguments recorded for the i-th exec or query.
func (s *script) argsAt(i int) []driver.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= len(s.args) {
		return nil
	}
	return s.args[i]
}

func (s *script) advance(kind stepKind, query string, args []driver.NamedValue) (step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pos >= len(s.steps) {
		return step{}, fmt.Errorf("unexpected %s after script end: %s", kind, query)
	}
	next := s.steps[s.pos]
	if next.kind != kind {
		return step{}, fmt.Errorf("step %d: want %s, got %s", s.pos, next.kind, kind)
	}
	if next.sql != "" && squash(next.sql) != squash(query) {
		return step{}, fmt.Errorf("step %d: want %q, got %q", s.pos, squash(next.sql), squash(query))
	}
	s.pos++
	if kind == stepExec || kind == stepQuery {
		values := make([]driver.Value, len(args))
		for i, a := range args {
			values[i] = a.Value
		}
		s.args = append(s.args, values)
	}
	return next, next.err
}

func (s *script) Open(string) (driver.Conn, error) { return scriptConn{s}, nil }

type scriptConn struct{ s *script }

func (c scriptConn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("prepared statements are not scripted: %s", query)
}

func (c scriptConn) Close() error { return nil }

func (c scriptConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c scriptConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if _, err := c.s.advance(stepBegin, "", nil); err != nil {
		return nil, err
	}
	return scriptTx(c), nil
}

func (c scriptConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	st, err := c.s.advance(stepExec, query, args)
	if err != nil {
		return nil, err
	}
	return driver.RowsAffected(st.affected), nil
}

func (c scriptConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	st, err := c.s.advance(stepQuery, query, args)
	if err != nil {
		return nil, err
	}
	return &scriptRows{columns: st.columns, rows: st.rows}, nil
}

func (c scriptConn) Ping(context.Context) error { return nil }

type scriptTx scriptConn

func (t scriptTx) Commit() error {
	_, err := t.s.advance(stepCommit, "", nil)
	return err
}

func (t scriptTx) Rollback() error {
	_, err := t.s.advance(stepRollback, "", nil)
	return err
}

type scriptRows struct {
	columns []string
	rows    [][]driver.Value
}

func (r *scriptRows) Columns() []string { return r.columns }
func (r *scriptRows) Close() error      { return nil }

func (r *scriptRows) Next(dest []driver.Value) error {
	if len(r.rows) == 0 {
		return io.EOF
	}
	copy(dest, r.rows[0])
	r.rows = r.rows[1:]
	return nil
}

func squash(query string) string { return strings.Join(strings.Fields(query), " ") }
