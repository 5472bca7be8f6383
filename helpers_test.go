package sqlsession

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	homesQuery     = "SELECT 1, 2, 3 FROM homes LIMIT 5"
	yourTableQuery = "SELECT id, name FROM your_table WHERE status = ?"
)

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

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func homesRows(params []Value) (RowStream, error) {
	cols := []Column{{Name: "1", Type: Integer}, {Name: "2", Type: Integer}, {Name: "3", Type: Integer}}
	rows := NewMockRows(cols)
	for i := 0; i < 5; i++ {
		rows.Data = append(rows.Data, []Value{IntValue(1), IntValue(2), IntValue(3)})
	}
	return rows, nil
}

func yourTableRows(params []Value) (RowStream, error) {
	status, err := params[0].AsString()
	if err != nil {
		return nil, err
	}
	rows := NewMockRows([]Column{
		{Name: "id", Type: Integer, DatabaseType: "BIGINT"},
		{Name: "name", Type: String, DatabaseType: "VARCHAR", Nullable: true},
	})
	for _, r := range yourTable {
		if r.status != status {
			continue
		}
		name := StringValue(r.name)
		if r.name == "" {
			name = Null
		}
		rows.Data = append(rows.Data, []Value{IntValue(r.id), name})
	}
	return rows, nil
}

// newTestSession returns a preparing session serving the homes and your_table queries.
func newTestSession() (*MockPreparedSession, *MockStmt) {
	stmt := &MockStmt{Types: []DataType{String}, Factory: yourTableRows}
	session := NewMockPreparedSession().WithStmt(yourTableQuery, stmt)
	session.WithResult(homesQuery, homesRows)
	return session, stmt
}

func openTest(t *testing.T, session Session, opts ...Options) *Connection {
	t.Helper()

	opt := Options{}
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.Logger == nil {
		opt.Logger = quietLogger()
	}

	conn, err := Open(context.Background(), &MockDriver{Session: session}, "arrow-flight-sql://localhost:32010", "user", "pass", opt)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
