package sqldriver

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"sync"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConnector hands out testConn connections that fail Ping or Prepare
// on demand and remember what was closed.
type testConnector struct {
	pingErr    error
	prepareErr error

	mu    sync.Mutex
	conns []*testConn
}

type testDriver struct{}

func (testDriver) Open(name string) (driver.Conn, error) {
	return &testConn{}, nil
}

func (c *testConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn := &testConn{pingErr: c.pingErr, prepareErr: c.prepareErr}
	c.mu.Lock()
	c.conns = append(c.conns, conn)
	c.mu.Unlock()
	return conn, nil
}

func (c *testConnector) Driver() driver.Driver {
	return testDriver{}
}

func (c *testConnector) lastConn() *testConn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.conns) == 0 {
		return nil
	}
	return c.conns[len(c.conns)-1]
}

type testConn struct {
	pingErr    error
	prepareErr error

	mu    sync.Mutex
	stmts []*testStmt
}

func (c *testConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *testConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if c.prepareErr != nil {
		return nil, c.prepareErr
	}
	stmt := &testStmt{}
	c.mu.Lock()
	c.stmts = append(c.stmts, stmt)
	c.mu.Unlock()
	return stmt, nil
}

func (c *testConn) Close() error {
	return nil
}

func (c *testConn) Begin() (driver.Tx, error) {
	return nil, errors.New("not supported")
}

func (c *testConn) Ping(ctx context.Context) error {
	return c.pingErr
}

func (c *testConn) lastStmt() *testStmt {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stmts) == 0 {
		return nil
	}
	return c.stmts[len(c.stmts)-1]
}

type testStmt struct {
	mu     sync.Mutex
	closed bool
	args   []driver.NamedValue
}

func (s *testStmt) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *testStmt) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *testStmt) NumInput() int {
	return -1
}

func (s *testStmt) Exec(args []driver.Value) (driver.Result, error) {
	return nil, errors.New("not supported")
}

func (s *testStmt) Query(args []driver.Value) (driver.Rows, error) {
	return &testRows{}, nil
}

func (s *testStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	s.mu.Lock()
	s.args = append([]driver.NamedValue(nil), args...)
	s.mu.Unlock()
	return &testRows{}, nil
}

type testRows struct {
	closed bool
	sent   bool
}

func (r *testRows) Columns() []string {
	return []string{"value"}
}

func (r *testRows) Close() error {
	r.closed = true
	return nil
}

func (r *testRows) Next(dest []driver.Value) error {
	if r.sent {
		return io.EOF
	}
	dest[0] = "ok"
	r.sent = true
	return nil
}

func newTestSQLDB(pingErr error) (*sql.DB, *testConnector) {
	return newTestSQLDBWithPrepareErr(pingErr, nil)
}

func newTestSQLDBWithPrepareErr(pingErr, prepareErr error) (*sql.DB, *testConnector) {
	c := &testConnector{pingErr: pingErr, prepareErr: prepareErr}
	return sql.OpenDB(c), c
}
