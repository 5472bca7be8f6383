package sqldriver

import (
	"context"
	"database/sql"
	"io"
	"sync"

	"github.com/elum-utils/sqlsession"
)

type session struct {
	db    *sql.DB
	conn  *sql.Conn
	owned bool // db was opened by Connect and is closed with the session.
}

func (s *session) Execute(ctx context.Context, query string, params []sqlsession.Value) (sqlsession.RowStream, error) {
	rows, err := s.conn.QueryContext(ctx, query, args(params)...)
	if err != nil {
		return nil, translate(err, sqlsession.CodeExecution)
	}
	return newRows(rows)
}

func (s *session) Prepare(ctx context.Context, query string) (sqlsession.PreparedHandle, error) {
	stmt, err := s.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, translate(err, sqlsession.CodeExecution)
	}
	return &handle{stmt: stmt}, nil
}

func (s *session) Close() error {
	err := s.conn.Close()
	if s.owned {
		if cerr := s.db.Close(); err == nil {
			err = cerr
		}
	}
	return translate(err, sqlsession.CodeExecution)
}

// handle is a statement prepared on the pinned connection.
type handle struct {
	stmt *sql.Stmt
}

// ParameterTypes is always nil: database/sql does not describe parameters.
func (h *handle) ParameterTypes() []sqlsession.DataType { return nil }

func (h *handle) Execute(ctx context.Context, params []sqlsession.Value) (sqlsession.RowStream, error) {
	rows, err := h.stmt.QueryContext(ctx, args(params)...)
	if err != nil {
		return nil, translate(err, sqlsession.CodeExecution)
	}
	return newRows(rows)
}

func (h *handle) Close() error {
	return translate(h.stmt.Close(), sqlsession.CodeExecution)
}

func args(params []sqlsession.Value) []any {
	out := make([]any, len(params))
	for i, p := range params {
		out[i] = p.Any()
	}
	return out
}

// rows streams *sql.Rows as sqlsession values.
type rows struct {
	rows *sql.Rows
	cols []sqlsession.Column
	scan []any

	once sync.Once
	err  error
}

func newRows(r *sql.Rows) (*rows, error) {
	types, err := r.ColumnTypes()
	if err != nil {
		_ = r.Close()
		return nil, translate(err, sqlsession.CodeExecution)
	}

	cols := make([]sqlsession.Column, len(types))
	scan := make([]any, len(types))
	for i, ct := range types {
		nullable, ok := ct.Nullable()
		cols[i] = sqlsession.Column{
			Name:         ct.Name(),
			Type:         sqlsession.ParseDataType(ct.DatabaseTypeName()),
			DatabaseType: ct.DatabaseTypeName(),
			Nullable:     !ok || nullable,
		}
		scan[i] = new(any)
	}

	return &rows{rows: r, cols: cols, scan: scan}, nil
}

func (r *rows) Columns() []sqlsession.Column { return r.cols }

func (r *rows) Next(dest []sqlsession.Value) error {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return translate(err, sqlsession.CodeExecution)
		}
		return io.EOF
	}
	if err := r.rows.Scan(r.scan...); err != nil {
		return translate(err, sqlsession.CodeExecution)
	}

	for i, p := range r.scan {
		v, err := convert(*(p.(*any)), r.cols[i])
		if err != nil {
			return err
		}
		dest[i] = v
	}
	return nil
}

func (r *rows) Close() error {
	r.once.Do(func() {
		r.err = translate(r.rows.Close(), sqlsession.CodeExecution)
	})
	return r.err
}
