// Package codectest checks sqlsession.Codec implementations against the
// results they will actually cache.
package codectest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elum-utils/sqlsession"
)

const query = "SELECT id, name, price, created, active, payload FROM goods WHERE id > ?"

var (
	columns = []sqlsession.Column{
		{Name: "id", Type: sqlsession.Integer, DatabaseType: "BIGINT"},
		{Name: "name", Type: sqlsession.String, DatabaseType: "VARCHAR", Nullable: true},
		{Name: "price", Type: sqlsession.Decimal, DatabaseType: "DECIMAL"},
		{Name: "created", Type: sqlsession.Timestamp, DatabaseType: "DATETIME"},
		{Name: "active", Type: sqlsession.Boolean, DatabaseType: "BOOLEAN"},
		{Name: "payload", Type: sqlsession.Binary, DatabaseType: "BLOB", Nullable: true},
	}
	created = time.Date(2024, 6, 1, 10, 30, 0, 123456789, time.UTC)
	rows    = [][]sqlsession.Value{
		{sqlsession.IntValue(1), sqlsession.StringValue("apple"), sqlsession.DecimalValue("1.20"),
			sqlsession.TimeValue(created), sqlsession.BoolValue(true), sqlsession.BytesValue([]byte{0, 1, 2})},
		{sqlsession.IntValue(1 << 60), sqlsession.Null, sqlsession.DecimalValue("0.00"),
			sqlsession.TimeValue(created.Add(time.Hour)), sqlsession.BoolValue(false), sqlsession.Null},
	}
)

// CachedRoundTrip executes a cached statement twice through codec and checks
// that the replayed result equals the one read from the driver.
func CachedRoundTrip(t *testing.T, codec sqlsession.Codec) {
	t.Helper()
	ctx := context.Background()

	handle := &sqlsession.MockStmt{Factory: func([]sqlsession.Value) (sqlsession.RowStream, error) {
		return sqlsession.NewMockRows(columns, rows...), nil
	}}
	session := sqlsession.NewMockPreparedSession().WithStmt(query, handle)

	conn, err := sqlsession.Open(ctx, &sqlsession.MockDriver{Session: session}, "mock://localhost/shop", "", "",
		sqlsession.Options{CacheEnabled: true, Codec: codec})
	require.NoError(t, err)
	defer conn.Close()

	stmt, err := conn.Prepare(ctx, query)
	require.NoError(t, err)
	defer stmt.Close()
	stmt.SetCacheTTL(time.Minute)
	require.NoError(t, stmt.Bind(1, 0))

	var results [2][][]sqlsession.Value
	for i := range results {
		cur, err := stmt.ExecuteQuery(ctx)
		require.NoError(t, err)
		assert.Equal(t, columns, cur.Columns())
		for cur.Next() {
			row := make([]sqlsession.Value, len(columns))
			for c := range row {
				row[c], err = cur.Get(c + 1)
				require.NoError(t, err)
			}
			results[i] = append(results[i], row)
		}
		require.NoError(t, cur.Err())
		require.NoError(t, cur.Close())
	}

	require.Len(t, handle.Calls(), 1, "second execution must come from the cache")
	require.Len(t, results[1], len(rows))
	for r := range rows {
		for c := range rows[r] {
			want, got := rows[r][c], results[1][r][c]
			assert.Equal(t, want.Kind, got.Kind, "row %d column %d", r, c)
			assert.Equal(t, want.String(), got.String(), "row %d column %d", r, c)
		}
	}
}
