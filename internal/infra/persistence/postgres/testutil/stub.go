// Package testutil provides an in-memory database/sql driver that understands
// the statements of the postgres run store.
package testutil

import (
	"cmp"
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// StubConn records statements and keeps inserted rows per table.
type StubConn struct {
	mu        sync.Mutex
	Execs     []string
	Tables    map[string][]map[string]any
	FailPing  bool
	FailExec  bool
	FailQuery bool
}

var stubSeq atomic.Int64

// NewStubDB registers a fresh driver and returns a sql.DB backed by it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]map[string]any)}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

// ExecCount returns how many statements were executed.
func (c *StubConn) ExecCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Execs)
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

var (
	insertRe = regexp.MustCompile(`(?is)^\s*insert\s+into\s+(\w+)\s*\(([^)]*)\)`)
	selectRe = regexp.MustCompile(`(?is)^\s*select\s+(.+?)\s+from\s+(\w+)(?:\s+where\s+(\w+)\s*=\s*\$1)?(?:\s+order\s+by\s+(.+?))?\s*$`)
)

// ExecContext implements driver.ExecerContext. INSERT ... ON CONFLICT
// replaces the row with the same first column; other statements are only
// recorded.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	m := insertRe.FindStringSubmatch(query)
	if m == nil {
		return driver.RowsAffected(0), nil
	}
	table, cols := strings.ToLower(m[1]), splitColumns(m[2])
	if len(cols) != len(args) {
		return nil, fmt.Errorf("column/arg mismatch for %s", table)
	}
	row := make(map[string]any, len(cols))
	for i, col := range cols {
		row[col] = args[i].Value
	}
	if strings.Contains(strings.ToUpper(query), "ON CONFLICT") {
		kept := c.Tables[table][:0:0]
		for _, existing := range c.Tables[table] {
			if existing[cols[0]] != row[cols[0]] {
				kept = append(kept, existing)
			}
		}
		c.Tables[table] = kept
	}
	c.Tables[table] = append(c.Tables[table], row)
	return driver.RowsAffected(1), nil
}

// QueryContext implements driver.QueryerContext for single-table selects
// with an optional "WHERE col = $1" and ORDER BY.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailQuery {
		return nil, fmt.Errorf("query fail")
	}
	m := selectRe.FindStringSubmatch(query)
	if m == nil {
		return nil, fmt.Errorf("cannot parse select: %s", query)
	}
	cols, table, where, order := splitColumns(m[1]), strings.ToLower(m[2]), strings.ToLower(m[3]), splitColumns(m[4])
	var matched []map[string]any
	for _, row := range c.Tables[table] {
		if where != "" && (len(args) == 0 || row[where] != args[0].Value) {
			continue
		}
		matched = append(matched, row)
	}
	if m[4] != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, col := range order {
				if c := compare(matched[i][col], matched[j][col]); c != 0 {
					return c < 0
				}
			}
			return false
		})
	}
	values := make([][]driver.Value, 0, len(matched))
	for _, row := range matched {
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = row[col]
		}
		values = append(values, vals)
	}
	return &stubRows{cols: cols, rows: values}, nil
}

func compare(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return cmp.Compare(av, bv)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func splitColumns(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(part)))
	}
	return out
}
