package sqlsession

import (
	"context"
)

// Driver supplies the wire protocol, authentication and encoding for one
// kind of endpoint. Connect is called once per Connection.
type Driver interface {
	Connect(ctx context.Context, cfg Config) (Session, error)
}

// Session is an established driver session.
type Session interface {
	// Execute runs sql with the given parameters and returns its rows.
	// len(params) equals the number of placeholders in sql.
	Execute(ctx context.Context, sql string, params []Value) (RowStream, error)

	// Close ends the session and releases server side resources.
	Close() error
}

// Preparer is implemented by sessions that support server side prepared
// statements. Sessions without it execute prepared statements through
// Session.Execute on every run.
type Preparer interface {
	Prepare(ctx context.Context, sql string) (PreparedHandle, error)
}

// PreparedHandle is a driver side prepared statement.
type PreparedHandle interface {
	// ParameterTypes returns the expected type of each placeholder, or nil
	// when the server does not expose them.
	ParameterTypes() []DataType

	// Execute runs the statement with params.
	Execute(ctx context.Context, params []Value) (RowStream, error)

	// Close releases the server side statement.
	Close() error
}

// RowStream is a forward-only stream of result rows.
type RowStream interface {
	// Columns describes the result. It is valid before the first Next.
	Columns() []Column

	// Next fills dest (len(dest) == len(Columns())) with the next row and
	// returns io.EOF when the stream is exhausted.
	Next(dest []Value) error

	// Close releases the stream. It is safe to call more than once.
	Close() error
}
