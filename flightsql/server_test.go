package flightsql

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/flight/flightsql"
	"github.com/apache/arrow-go/v18/arrow/float16"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/elum-utils/sqlsession"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	homesQuery     = "SELECT 1, 2, 3 FROM homes LIMIT 5"
	yourTableQuery = "SELECT id, name FROM your_table WHERE status = ?"
	typedQuery     = "SELECT * FROM typed"
	emptyQuery     = "SELECT * FROM empty"
)

var typedTime = time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)

var yourTableSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64,
		Metadata: arrow.NewMetadata([]string{typeNameKey}, []string{"BIGINT"})},
	{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true,
		Metadata: arrow.NewMetadata([]string{typeNameKey}, []string{"VARCHAR"})},
}, nil)

var homesSchema = arrow.NewSchema([]arrow.Field{
	{Name: "1", Type: arrow.PrimitiveTypes.Int32},
	{Name: "2", Type: arrow.PrimitiveTypes.Int32},
	{Name: "3", Type: arrow.PrimitiveTypes.Int32},
}, nil)

var typedSchema = arrow.NewSchema([]arrow.Field{
	{Name: "u64", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "f16", Type: arrow.FixedWidthTypes.Float16},
	{Name: "dec", Type: &arrow.Decimal128Type{Precision: 10, Scale: 2}},
	{Name: "day", Type: arrow.FixedWidthTypes.Date32},
	{Name: "tod", Type: arrow.FixedWidthTypes.Time64us},
	{Name: "ts", Type: &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"}},
	{Name: "bin", Type: arrow.BinaryTypes.Binary},
	{Name: "big", Type: arrow.BinaryTypes.LargeString},
	{Name: "flag", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "nothing", Type: arrow.Null, Nullable: true},
}, nil)

var yourTable = []struct {
	id     int64
	name   string
	status string
}{
	{1, "alpha", "active"},
	{2, "beta", "archived"},
	{3, "gamma", "active"},
	{4, "", "active"},
}

// shopServer is a Flight SQL backend serving fixed results. Prepared
// statements answer from two endpoints so results span several streams.
type shopServer struct {
	flightsql.BaseServer

	mu       sync.Mutex
	handles  int
	bound    map[string][]sqlsession.Value
	closed   []string
	requests []metadata.MD
}

func newShopServer() *shopServer {
	return &shopServer{bound: make(map[string][]sqlsession.Value)}
}

func (s *shopServer) CreatePreparedStatement(ctx context.Context, req flightsql.ActionCreatePreparedStatementRequest) (flightsql.ActionCreatePreparedStatementResult, error) {
	if req.GetQuery() != yourTableQuery {
		return flightsql.ActionCreatePreparedStatementResult{}, status.Errorf(codes.InvalidArgument, "syntax error near %q", req.GetQuery())
	}

	s.mu.Lock()
	s.handles++
	handle := fmt.Sprintf("stmt-%d", s.handles)
	s.mu.Unlock()

	return flightsql.ActionCreatePreparedStatementResult{
		Handle:        []byte(handle),
		DatasetSchema: yourTableSchema,
		ParameterSchema: arrow.NewSchema([]arrow.Field{
			{Name: "status", Type: arrow.BinaryTypes.String, Nullable: true},
		}, nil),
	}, nil
}

func (s *shopServer) DoPutPreparedStatementQuery(ctx context.Context, qry flightsql.PreparedStatementQuery, r flight.MessageReader, w flight.MetadataWriter) ([]byte, error) {
	var params []sqlsession.Value
	for r.Next() {
		rec := r.Record()
		if rec.NumRows() == 0 {
			continue
		}
		params = params[:0]
		for _, col := range rec.Columns() {
			v, err := fromArrow(col, 0)
			if err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			params = append(params, v)
		}
	}

	handle := qry.GetPreparedStatementHandle()
	s.mu.Lock()
	s.bound[string(handle)] = params
	s.mu.Unlock()
	return handle, nil
}

func (s *shopServer) GetFlightInfoPreparedStatement(ctx context.Context, cmd flightsql.PreparedStatementQuery, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	handle := string(cmd.GetPreparedStatementHandle())
	return flightInfo(desc, handle+"/0", handle+"/1")
}

func (s *shopServer) GetFlightInfoStatement(ctx context.Context, cmd flightsql.StatementQuery, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	s.mu.Lock()
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		s.requests = append(s.requests, md)
	}
	s.mu.Unlock()

	switch cmd.GetQuery() {
	case homesQuery:
		return flightInfo(desc, "homes")
	case typedQuery:
		return flightInfo(desc, "typed")
	case emptyQuery:
		return &flight.FlightInfo{
			Schema:           flight.SerializeSchema(yourTableSchema, memory.DefaultAllocator),
			FlightDescriptor: desc,
			TotalRecords:     0,
			TotalBytes:       -1,
		}, nil
	}
	return nil, status.Errorf(codes.InvalidArgument, "syntax error near %q", cmd.GetQuery())
}

func flightInfo(desc *flight.FlightDescriptor, handles ...string) (*flight.FlightInfo, error) {
	info := &flight.FlightInfo{FlightDescriptor: desc, TotalRecords: -1, TotalBytes: -1}
	for _, h := range handles {
		ticket, err := flightsql.CreateStatementQueryTicket([]byte(h))
		if err != nil {
			return nil, err
		}
		info.Endpoint = append(info.Endpoint, &flight.FlightEndpoint{Ticket: &flight.Ticket{Ticket: ticket}})
	}
	return info, nil
}

func (s *shopServer) DoGetStatement(ctx context.Context, ticket flightsql.StatementQueryTicket) (*arrow.Schema, <-chan flight.StreamChunk, error) {
	handle := string(ticket.GetStatementHandle())

	var schema *arrow.Schema
	var records []arrow.Record
	switch {
	case handle == "homes":
		// Five rows in two batches.
		schema = homesSchema
		records = []arrow.Record{homesRecord(3), homesRecord(2)}
	case handle == "typed":
		schema = typedSchema
		records = []arrow.Record{typedRecord()}
	case strings.HasPrefix(handle, "stmt-"):
		name, part, _ := strings.Cut(handle, "/")
		s.mu.Lock()
		params := s.bound[name]
		s.mu.Unlock()
		if len(params) != 1 {
			return nil, nil, status.Error(codes.InvalidArgument, "parameters not bound")
		}
		want, _ := params[0].AsString()
		schema = yourTableSchema
		records = []arrow.Record{yourTableRecord(want, part == "1")}
	default:
		return nil, nil, status.Errorf(codes.NotFound, "unknown ticket %q", handle)
	}

	ch := make(chan flight.StreamChunk, len(records))
	for _, rec := range records {
		ch <- flight.StreamChunk{Data: rec}
	}
	close(ch)
	return schema, ch, nil
}

func (s *shopServer) ClosePreparedStatement(ctx context.Context, req flightsql.ActionClosePreparedStatementRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = append(s.closed, string(req.GetPreparedStatementHandle()))
	return nil
}

func (s *shopServer) closedHandles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.closed...)
}

func (s *shopServer) lastRequest() metadata.MD {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

func homesRecord(n int) arrow.Record {
	b := array.NewRecordBuilder(memory.DefaultAllocator, homesSchema)
	defer b.Release()
	for i := 0; i < n; i++ {
		b.Field(0).(*array.Int32Builder).Append(1)
		b.Field(1).(*array.Int32Builder).Append(2)
		b.Field(2).(*array.Int32Builder).Append(3)
	}
	return b.NewRecord()
}

// yourTableRecord returns the rows with the given status, ids 1-2 or 3-4.
func yourTableRecord(status string, upper bool) arrow.Record {
	b := array.NewRecordBuilder(memory.DefaultAllocator, yourTableSchema)
	defer b.Release()
	for _, r := range yourTable {
		if r.status != status || (r.id > 2) != upper {
			continue
		}
		b.Field(0).(*array.Int64Builder).Append(r.id)
		if r.name == "" {
			b.Field(1).AppendNull()
		} else {
			b.Field(1).(*array.StringBuilder).Append(r.name)
		}
	}
	return b.NewRecord()
}

func typedRecord() arrow.Record {
	b := array.NewRecordBuilder(memory.DefaultAllocator, typedSchema)
	defer b.Release()

	b.Field(0).(*array.Uint64Builder).Append(1<<63 + 5)
	b.Field(1).(*array.Float16Builder).Append(float16.New(1.5))
	dec, _ := decimal128.FromString("123.45", 10, 2)
	b.Field(2).(*array.Decimal128Builder).Append(dec)
	b.Field(3).(*array.Date32Builder).Append(arrow.Date32FromTime(typedTime))
	b.Field(4).(*array.Time64Builder).Append(arrow.Time64(90 * time.Minute / time.Microsecond))
	ts, _ := arrow.TimestampFromTime(typedTime, arrow.Millisecond)
	b.Field(5).(*array.TimestampBuilder).Append(ts)
	b.Field(6).(*array.BinaryBuilder).Append([]byte{0xca, 0xfe})
	b.Field(7).(*array.LargeStringBuilder).Append("large")
	b.Field(8).(*array.BooleanBuilder).Append(true)
	b.Field(9).AppendNull()

	return b.NewRecord()
}

// startServer serves srv on a random local port for the duration of the test.
func startServer(t *testing.T, srv flightsql.Server, middleware ...flight.ServerMiddleware) string {
	t.Helper()

	server := flight.NewServerWithMiddleware(middleware)
	server.RegisterFlightService(flightsql.NewFlightServer(srv))
	require.NoError(t, server.Init("localhost:0"))
	go func() { _ = server.Serve() }()
	t.Cleanup(server.Shutdown)

	return server.Addr().String()
}

// requireBasicAuth rejects calls that do not carry user:password.
func requireBasicAuth(user, password string) flight.ServerMiddleware {
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
	check := func(ctx context.Context) error {
		md, _ := metadata.FromIncomingContext(ctx)
		for _, v := range md.Get("authorization") {
			if v == want {
				return nil
			}
		}
		return status.Error(codes.Unauthenticated, "invalid credentials")
	}

	return flight.ServerMiddleware{
		Unary: func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			if err := check(ctx); err != nil {
				return nil, err
			}
			return handler(ctx, req)
		},
		Stream: func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
			if err := check(ss.Context()); err != nil {
				return err
			}
			return handler(srv, ss)
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openFlight(t *testing.T, url string) *sqlsession.Connection {
	t.Helper()

	conn, err := sqlsession.Open(context.Background(), New(), url, "", "", sqlsession.Options{
		Logger:         quietLogger(),
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
