package sqlsession

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Statement is a SQL command bound to a Connection. Prepared statements can
// be executed any number of times; bindings persist between executions until
// they are rebound or cleared. At most one Cursor per Statement is live.
type Statement struct {
	conn       *Connection
	sql        string
	numInput   int
	prepared   bool
	owned      bool           // Created by Connection.Execute and closed by its cursor.
	handle     PreparedHandle // nil when the session cannot prepare.
	paramTypes []DataType     // Expected parameter types, nil when unknown.

	mu       sync.Mutex
	params   []Value
	bound    []bool
	cacheTTL time.Duration
	cursor   *Cursor
	closed   bool
}

func newStatement(conn *Connection, sql string, numInput int) *Statement {
	return &Statement{
		conn:     conn,
		sql:      sql,
		numInput: numInput,
		params:   make([]Value, numInput),
		bound:    make([]bool, numInput),
	}
}

// SQL returns the statement text.
func (s *Statement) SQL() string { return s.sql }

// NumInput returns the number of placeholders.
func (s *Statement) NumInput() int { return s.numInput }

// Prepared reports whether the statement came from Prepare or PrepareCall.
func (s *Statement) Prepared() bool { return s.prepared }

// Bind sets the value of the 1-based placeholder index. value may be a Value
// or any Go scalar accepted by ValueOf; nil binds SQL NULL.
func (s *Statement) Bind(index int, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return useAfterClose("statement")
	}
	if index < 1 || index > s.numInput {
		return NewError(CodeIndexOutOfRange, "parameter index %d out of range 1..%d", index, s.numInput)
	}

	v, err := ValueOf(value)
	if err != nil {
		return err
	}
	if index <= len(s.paramTypes) && !s.paramTypes[index-1].Accepts(v.Kind) {
		return NewError(CodeTypeMismatch, "parameter %d expects %s, got %s", index, s.paramTypes[index-1], v.Kind)
	}

	s.params[index-1] = v
	s.bound[index-1] = true
	return nil
}

// ClearParameters unbinds every placeholder.
func (s *Statement) ClearParameters() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return useAfterClose("statement")
	}
	for i := range s.params {
		s.params[i] = Null
		s.bound[i] = false
	}
	return nil
}

// SetCacheTTL enables result caching for this statement when the connection
// was opened with Options.CacheEnabled. Zero disables it again.
func (s *Statement) SetCacheTTL(ttl time.Duration) {
	s.mu.Lock()
	s.cacheTTL = ttl
	s.mu.Unlock()
}

// ExecuteQuery runs the statement with the current bindings and returns a
// cursor over its rows. The previous cursor of this statement is closed first.
func (s *Statement) ExecuteQuery(ctx context.Context) (*Cursor, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, useAfterClose("statement")
	}
	prev := s.cursor
	s.cursor = nil
	s.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			s.conn.log.Warn("close previous cursor", slog.Any("error", err))
		}
	}

	s.mu.Lock()
	for i, ok := range s.bound {
		if !ok {
			s.mu.Unlock()
			return nil, NewError(CodeUnboundParameter, "parameter %d of %d is not bound", i+1, s.numInput)
		}
	}
	params := append([]Value(nil), s.params...)
	cached := s.conn.cache != nil && s.cacheTTL > 0
	s.mu.Unlock()

	qctx, cancel := s.conn.queryContext(ctx)

	var rows RowStream
	var err error
	if cached {
		rows, err = s.runCached(qctx, params)
	} else {
		rows, err = s.exec(qctx, params)
	}
	if err != nil {
		cancel()
		s.conn.log.Debug("execute failed", slog.String("sql", s.sql), slog.Any("error", err))
		return nil, err
	}

	cur := newCursor(s, rows, cancel)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = cur.Close()
		return nil, useAfterClose("statement")
	}
	s.cursor = cur
	s.mu.Unlock()

	s.conn.log.Debug("execute", slog.String("sql", s.sql), slog.Int("params", len(params)))
	return cur, nil
}

// exec runs the statement on the driver. A stream returned together with an
// error is closed here.
func (s *Statement) exec(ctx context.Context, params []Value) (RowStream, error) {
	var rows RowStream
	var err error
	if s.handle != nil {
		rows, err = s.handle.Execute(ctx, params)
	} else {
		rows, err = s.conn.session.Execute(ctx, s.sql, params)
	}
	if err != nil {
		if rows != nil {
			_ = rows.Close()
		}
		return nil, WrapError(CodeExecution, err, "execute statement")
	}
	return rows, nil
}

// cursorClosed forgets cur if it is still the live cursor.
func (s *Statement) cursorClosed(cur *Cursor) {
	s.mu.Lock()
	if s.cursor == cur {
		s.cursor = nil
	}
	s.mu.Unlock()
}

// Close closes the live cursor and releases the driver handle. It is safe to
// call more than once.
func (s *Statement) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cur := s.cursor
	s.cursor = nil
	handle := s.handle
	s.handle = nil
	s.mu.Unlock()

	var err error
	if cur != nil {
		err = cur.Close()
	}
	if handle != nil {
		if herr := handle.Close(); herr != nil && err == nil {
			err = WrapError(CodeExecution, herr, "close prepared statement")
		}
	}
	s.conn.forget(s)
	return err
}
