package sqlsession

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"
)

// CursorState is the position of a Cursor in its result.
type CursorState uint8

const (
	BeforeFirst CursorState = iota // Created, Next not called yet.
	Positioned                     // On a row; columns are readable.
	Exhausted                      // Past the last row or after a read failure. Sticky.
	Closed                         // Released. Terminal.
)

func (s CursorState) String() string {
	switch s {
	case BeforeFirst:
		return "before first"
	case Positioned:
		return "positioned"
	case Exhausted:
		return "exhausted"
	case Closed:
		return "closed"
	}
	return "invalid"
}

// Cursor is a forward-only iterator over the rows of one statement execution.
//
//	cur, err := stmt.ExecuteQuery(ctx)
//	if err != nil {
//		return err
//	}
//	defer cur.Close()
//	for cur.Next() {
//		id, err := cur.Get(1)
//		...
//	}
//	return cur.Err()
//
// Column indexes are 1-based. The driver stream is released as soon as the
// last row has been read; Close is still required.
type Cursor struct {
	stmt     *Statement
	ownsStmt bool               // Close also closes stmt (plain statements from Connection.Execute).
	cancel   context.CancelFunc // Ends the query context.

	mu    sync.Mutex
	rows  RowStream
	cols  []Column
	row   []Value
	state CursorState
	err   error
}

func newCursor(stmt *Statement, rows RowStream, cancel context.CancelFunc) *Cursor {
	cols := rows.Columns()
	return &Cursor{
		stmt:     stmt,
		ownsStmt: stmt.owned,
		cancel:   cancel,
		rows:     rows,
		cols:     cols,
		row:      make([]Value, len(cols)),
	}
}

// Next advances to the next row and reports whether there is one. Once it
// returns false it keeps returning false; check Err for the reason.
func (c *Cursor) Next() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Closed:
		c.err = useAfterClose("cursor")
		return false
	case Exhausted:
		return false
	}

	if err := c.rows.Next(c.row); err != nil {
		if !errors.Is(err, io.EOF) {
			c.err = WrapError(CodeExecution, err, "read row")
		}
		if err := c.release(); err != nil && c.err == nil {
			c.err = err
		}
		c.state = Exhausted
		return false
	}

	c.state = Positioned
	return true
}

// release closes the driver stream and ends the query context. Caller holds mu.
func (c *Cursor) release() error {
	if c.rows == nil {
		return nil
	}
	err := c.rows.Close()
	c.rows = nil
	c.cancel()
	for i := range c.row {
		c.row[i] = Null
	}
	return WrapError(CodeExecution, err, "release result")
}

// Err returns the error, if any, that ended the iteration: a read failure
// (ErrExecution, or ErrConnection when the driver lost the session) or
// ErrUseAfterClose when Next was called on a closed cursor.
func (c *Cursor) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// State returns the current cursor state.
func (c *Cursor) State() CursorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Columns describes the result columns. It is valid in every state.
func (c *Cursor) Columns() []Column {
	return c.cols
}

// readable fails unless the cursor is on a row. Caller holds mu.
func (c *Cursor) readable() error {
	switch c.state {
	case Closed:
		return useAfterClose("cursor")
	case BeforeFirst:
		return NewError(CodeNotPositioned, "cursor is before the first row; call Next")
	case Exhausted:
		return NewError(CodeNotPositioned, "cursor is past the last row")
	}
	return nil
}

// Get returns the value of the 1-based column index in the current row.
// SQL NULL is returned as a Value whose IsNull reports true.
func (c *Cursor) Get(index int) (Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.readable(); err != nil {
		return Null, err
	}
	if index < 1 || index > len(c.cols) {
		return Null, NewError(CodeUnknownColumn, "column index %d out of range 1..%d", index, len(c.cols))
	}
	return c.row[index-1], nil
}

// GetByName returns the value of the named column in the current row.
// An exact name match wins; otherwise the first case-insensitive match is used.
func (c *Cursor) GetByName(name string) (Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.readable(); err != nil {
		return Null, err
	}
	i, err := c.ColumnIndex(name)
	if err != nil {
		return Null, err
	}
	return c.row[i-1], nil
}

// ColumnIndex returns the 1-based index of the named column.
func (c *Cursor) ColumnIndex(name string) (int, error) {
	for i, col := range c.cols {
		if col.Name == name {
			return i + 1, nil
		}
	}
	for i, col := range c.cols {
		if strings.EqualFold(col.Name, name) {
			return i + 1, nil
		}
	}
	return 0, NewError(CodeUnknownColumn, "no column named %q", name)
}

// Scan copies the current row into dest, one pointer per column. Supported
// destinations are *Value, *any and pointers to int, int32, int64, float32,
// float64, string, bool, []byte and time.Time. NULL can only be scanned into
// *Value or *any; other destinations fail with ErrNullValue.
func (c *Cursor) Scan(dest ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.readable(); err != nil {
		return err
	}
	if len(dest) != len(c.cols) {
		return NewError(CodeTypeMismatch, "expected %d destination arguments in Scan, not %d", len(c.cols), len(dest))
	}
	for i, d := range dest {
		if err := scanValue(d, c.row[i]); err != nil {
			var e *Error
			if errors.As(err, &e) {
				return &Error{Code: e.Code, Message: "column " + c.cols[i].Name + ": " + e.Message}
			}
			return err
		}
	}
	return nil
}

func scanValue(dest any, v Value) error {
	switch d := dest.(type) {
	case *Value:
		*d = v
		return nil
	case *any:
		*d = v.Any()
		return nil
	case *int64:
		n, err := v.AsInt64()
		*d = n
		return err
	case *int:
		n, err := v.AsInt64()
		*d = int(n)
		return err
	case *int32:
		n, err := v.AsInt64()
		if err == nil && int64(int32(n)) != n {
			return NewError(CodeTypeMismatch, "value %d overflows int32", n)
		}
		*d = int32(n)
		return err
	case *float64:
		f, err := v.AsFloat64()
		*d = f
		return err
	case *float32:
		f, err := v.AsFloat64()
		*d = float32(f)
		return err
	case *string:
		s, err := v.AsString()
		*d = s
		return err
	case *bool:
		b, err := v.AsBool()
		*d = b
		return err
	case *[]byte:
		b, err := v.AsBytes()
		if err == nil {
			b = append([]byte(nil), b...)
		}
		*d = b
		return err
	case *time.Time:
		t, err := v.AsTime()
		*d = t
		return err
	}
	return NewError(CodeTypeMismatch, "unsupported Scan destination %T", dest)
}

// Close releases the result. It may be called in any state and more than once.
func (c *Cursor) Close() error {
	// Unblock a Next that is waiting on the network.
	c.cancel()

	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return nil
	}
	err := c.release()
	c.state = Closed
	c.mu.Unlock()

	c.stmt.cursorClosed(c)
	if c.ownsStmt {
		if cerr := c.stmt.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
