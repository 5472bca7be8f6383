package sqlsession

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// In-memory Driver implementations for tests of code built on this package.

// RowsFactory produces a fresh result for one execution.
type RowsFactory func(params []Value) (RowStream, error)

// MockRows is a RowStream over fixed rows. Err, when set, is returned
// instead of io.EOF after the last row.
type MockRows struct {
	Cols []Column
	Data [][]Value
	Err  error

	mu     sync.Mutex
	idx    int
	closed int
}

// NewMockRows returns rows with the given columns and data.
func NewMockRows(cols []Column, data ...[]Value) *MockRows {
	return &MockRows{Cols: cols, Data: data}
}

func (r *MockRows) Columns() []Column { return r.Cols }

func (r *MockRows) Next(dest []Value) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed > 0 {
		return errors.New("mock rows: next on closed rows")
	}
	if r.idx >= len(r.Data) {
		if r.Err != nil {
			return r.Err
		}
		return io.EOF
	}
	copy(dest, r.Data[r.idx])
	r.idx++
	return nil
}

func (r *MockRows) Close() error {
	r.mu.Lock()
	r.closed++
	r.mu.Unlock()
	return nil
}

// IsClosed reports whether Close was called.
func (r *MockRows) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed > 0
}

// MockStmt is a PreparedHandle. Factory serves every execution.
type MockStmt struct {
	Types    []DataType
	Factory  RowsFactory
	CloseErr error

	mu     sync.Mutex
	calls  [][]Value
	closed bool
}

func (s *MockStmt) ParameterTypes() []DataType { return s.Types }

func (s *MockStmt) Execute(ctx context.Context, params []Value) (RowStream, error) {
	s.mu.Lock()
	s.calls = append(s.calls, append([]Value(nil), params...))
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Factory(params)
}

func (s *MockStmt) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.CloseErr
}

// Calls returns the parameters of every execution so far.
func (s *MockStmt) Calls() [][]Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]Value(nil), s.calls...)
}

// IsClosed reports whether Close was called.
func (s *MockStmt) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// MockSession is a Session answering queries from Results by exact SQL text.
// Delay holds every Execute until it passes or the context is done.
type MockSession struct {
	Results  map[string]RowsFactory
	Delay    time.Duration
	CloseErr error

	mu       sync.Mutex
	executed []string
	closed   bool
}

// NewMockSession returns an empty session.
func NewMockSession() *MockSession {
	return &MockSession{Results: make(map[string]RowsFactory)}
}

// WithResult registers the result served for query.
func (m *MockSession) WithResult(query string, factory RowsFactory) *MockSession {
	m.Results[query] = factory
	return m
}

func (m *MockSession) Execute(ctx context.Context, query string, params []Value) (RowStream, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errors.New("mock session: closed")
	}
	m.executed = append(m.executed, query)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	factory, ok := m.Results[query]
	if !ok {
		return nil, errors.New("mock session: no result for query " + query)
	}
	return factory(params)
}

func (m *MockSession) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return m.CloseErr
}

// Executed returns the SQL text of every execution so far.
func (m *MockSession) Executed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.executed...)
}

// IsClosed reports whether Close was called.
func (m *MockSession) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockPreparedSession adds server side preparation to MockSession.
// Statements are looked up by exact SQL text.
type MockPreparedSession struct {
	*MockSession
	Stmts map[string]*MockStmt

	prepares int
}

// NewMockPreparedSession returns an empty preparing session.
func NewMockPreparedSession() *MockPreparedSession {
	return &MockPreparedSession{MockSession: NewMockSession(), Stmts: make(map[string]*MockStmt)}
}

// WithStmt registers the statement returned by Prepare(query).
func (m *MockPreparedSession) WithStmt(query string, stmt *MockStmt) *MockPreparedSession {
	m.Stmts[query] = stmt
	return m
}

func (m *MockPreparedSession) Prepare(ctx context.Context, query string) (PreparedHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errors.New("mock session: closed")
	}
	m.prepares++
	stmt, ok := m.Stmts[query]
	if !ok {
		return nil, errors.New("mock session: cannot prepare " + query)
	}
	return stmt, nil
}

// Prepares returns the number of Prepare calls.
func (m *MockPreparedSession) Prepares() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prepares
}

// MockDriver hands out Session on Connect, or fails with Err.
type MockDriver struct {
	Session Session
	Err     error
	Delay   time.Duration

	mu      sync.Mutex
	configs []Config
}

func (d *MockDriver) Connect(ctx context.Context, cfg Config) (Session, error) {
	d.mu.Lock()
	d.configs = append(d.configs, cfg)
	d.mu.Unlock()

	if d.Delay > 0 {
		select {
		case <-time.After(d.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Session, nil
}

// Configs returns the configuration of every Connect call.
func (d *MockDriver) Configs() []Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Config(nil), d.configs...)
}
