package flightsql

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/flight/flightsql"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/elum-utils/sqlsession"
)

type session struct {
	client *flightsql.Client
	alloc  memory.Allocator
}

// Execute runs query directly, or through a one-off prepared statement when
// it has parameters. The statement lives until the rows are closed.
func (s *session) Execute(ctx context.Context, query string, params []sqlsession.Value) (sqlsession.RowStream, error) {
	if len(params) > 0 {
		h, err := s.prepare(ctx, query)
		if err != nil {
			return nil, err
		}
		r, err := h.execute(ctx, params)
		if err != nil {
			_ = h.Close()
			return nil, err
		}
		r.onClose = h.Close
		return r, nil
	}

	info, err := s.client.Execute(ctx, query)
	if err != nil {
		return nil, translate(err, sqlsession.CodeExecution)
	}
	return s.stream(ctx, info)
}

func (s *session) Prepare(ctx context.Context, query string) (sqlsession.PreparedHandle, error) {
	return s.prepare(ctx, query)
}

func (s *session) prepare(ctx context.Context, query string) (*handle, error) {
	stmt, err := s.client.Prepare(ctx, query)
	if err != nil {
		return nil, translate(err, sqlsession.CodeExecution)
	}
	return &handle{
		session: s,
		stmt:    stmt,
		types:   parameterTypes(stmt.ParameterSchema()),
	}, nil
}

func (s *session) Close() error {
	return translate(s.client.Close(), sqlsession.CodeExecution)
}

// stream opens the first endpoint to learn the schema; the others are
// fetched when the rows before them have been read.
func (s *session) stream(ctx context.Context, info *flight.FlightInfo) (*rows, error) {
	r := &rows{ctx: ctx, client: s.client, endpoints: info.GetEndpoint()}

	var schema *arrow.Schema
	switch {
	case len(r.endpoints) > 0:
		if err := r.open(); err != nil {
			_ = r.Close()
			return nil, err
		}
		schema = r.reader.Schema()
	case len(info.GetSchema()) > 0:
		var err error
		schema, err = flight.DeserializeSchema(info.GetSchema(), s.alloc)
		if err != nil {
			return nil, sqlsession.WrapError(sqlsession.CodeExecution, err, "decode result schema")
		}
	}

	if schema != nil {
		r.cols = columns(schema)
	}
	return r, nil
}

// handle is a server side prepared statement.
type handle struct {
	session *session
	stmt    *flightsql.PreparedStatement
	types   []sqlsession.DataType

	closeOnce sync.Once
	closeErr  error
}

func (h *handle) ParameterTypes() []sqlsession.DataType { return h.types }

func (h *handle) Execute(ctx context.Context, params []sqlsession.Value) (sqlsession.RowStream, error) {
	return h.execute(ctx, params)
}

func (h *handle) execute(ctx context.Context, params []sqlsession.Value) (*rows, error) {
	if err := h.bind(params); err != nil {
		return nil, err
	}

	info, err := h.stmt.Execute(ctx)
	if err != nil {
		return nil, translate(err, sqlsession.CodeExecution)
	}
	return h.session.stream(ctx, info)
}

// bind sends params as a one row record. The server's parameter schema is
// used when it can hold the values; otherwise the schema follows the values.
func (h *handle) bind(params []sqlsession.Value) error {
	if len(params) == 0 {
		h.stmt.SetParameters(nil)
		return nil
	}

	schema := h.stmt.ParameterSchema()
	if !bindable(schema, len(params)) {
		schema = inferSchema(params)
	}

	builder := array.NewRecordBuilder(h.session.alloc, schema)
	defer builder.Release()

	for i, p := range params {
		if err := appendValue(builder.Field(i), p); err != nil {
			var se *sqlsession.Error
			if errors.As(err, &se) {
				return &sqlsession.Error{Code: se.Code, Message: "parameter " + schema.Field(i).Name + ": " + se.Message, Err: se.Err}
			}
			return err
		}
	}

	rec := builder.NewRecord()
	defer rec.Release()

	h.stmt.SetParameters(rec)
	return nil
}

func (h *handle) Close() error {
	h.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		h.closeErr = translate(h.stmt.Close(ctx), sqlsession.CodeExecution)
	})
	return h.closeErr
}

// rows reads the endpoints of a FlightInfo one record batch at a time.
type rows struct {
	ctx       context.Context
	client    *flightsql.Client
	endpoints []*flight.FlightEndpoint
	next      int // Index of the next endpoint to open.

	reader *flight.Reader
	record arrow.Record // Owned by reader, valid until reader.Next.
	row    int
	cols   []sqlsession.Column

	onClose   func() error
	closeOnce sync.Once
	closeErr  error
}

func (r *rows) Columns() []sqlsession.Column { return r.cols }

func (r *rows) open() error {
	endpoint := r.endpoints[r.next]
	r.next++

	reader, err := r.client.DoGet(r.ctx, endpoint.GetTicket())
	if err != nil {
		return translate(err, sqlsession.CodeExecution)
	}
	r.reader = reader
	return nil
}

// advance moves to the next non-empty record, opening endpoints as needed.
func (r *rows) advance() error {
	r.record = nil
	for {
		if r.reader != nil {
			if r.reader.Next() {
				r.record = r.reader.Record()
				r.row = 0
				if r.record.NumRows() > 0 {
					return nil
				}
				continue
			}
			err := r.reader.Err()
			r.reader.Release()
			r.reader = nil
			r.record = nil
			if err != nil && !errors.Is(err, io.EOF) {
				return translate(err, sqlsession.CodeExecution)
			}
		}
		if r.next >= len(r.endpoints) {
			return io.EOF
		}
		if err := r.open(); err != nil {
			return err
		}
	}
}

func (r *rows) Next(dest []sqlsession.Value) error {
	if r.record == nil || int64(r.row) >= r.record.NumRows() {
		if err := r.advance(); err != nil {
			return err
		}
	}

	if int(r.record.NumCols()) != len(dest) {
		return sqlsession.NewError(sqlsession.CodeExecution, "record has %d columns, result has %d", r.record.NumCols(), len(dest))
	}
	for i, arr := range r.record.Columns() {
		v, err := fromArrow(arr, r.row)
		if err != nil {
			return err
		}
		dest[i] = v
	}
	r.row++
	return nil
}

func (r *rows) Close() error {
	r.closeOnce.Do(func() {
		if r.reader != nil {
			r.reader.Release()
			r.reader = nil
		}
		r.record = nil
		if r.onClose != nil {
			r.closeErr = r.onClose()
		}
	})
	return r.closeErr
}
