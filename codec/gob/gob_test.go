package gob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elum-utils/sqlsession"
	"github.com/elum-utils/sqlsession/codec/codectest"
)

func TestGobCodec_CachedResult(t *testing.T) {
	codectest.CachedRoundTrip(t, GobCodec{})
}

func TestGobCodec_TruncatedData(t *testing.T) {
	codec := GobCodec{}
	data, err := codec.Marshal([][]sqlsession.Value{{sqlsession.StringValue("truncated"), sqlsession.IntValue(12345)}})
	require.NoError(t, err)

	var rows [][]sqlsession.Value
	assert.Error(t, codec.Unmarshal(data[:len(data)/2], &rows))
}

func TestGobCodec_ReusedDestination(t *testing.T) {
	codec := GobCodec{}
	data, err := codec.Marshal([]sqlsession.Value{sqlsession.Null, sqlsession.StringValue("b")})
	require.NoError(t, err)

	row := []sqlsession.Value{sqlsession.IntValue(42), sqlsession.IntValue(7)}
	require.NoError(t, codec.Unmarshal(data, &row))
	assert.Equal(t, []sqlsession.Value{sqlsession.Null, sqlsession.StringValue("b")}, row)
}

func TestGobCodec_NeedsPointer(t *testing.T) {
	var rows [][]sqlsession.Value
	assert.Error(t, GobCodec{}.Unmarshal([]byte{0}, rows))
	assert.Error(t, GobCodec{}.Unmarshal([]byte{0}, (*[][]sqlsession.Value)(nil)))
}

func BenchmarkGobCodec_Marshal(b *testing.B) {
	codec := GobCodec{}
	rows := [][]sqlsession.Value{
		{sqlsession.IntValue(1), sqlsession.StringValue("Benchmark"), sqlsession.Null},
		{sqlsession.IntValue(2), sqlsession.StringValue("Benchmark"), sqlsession.FloatValue(30)},
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := codec.Marshal(rows); err != nil {
			b.Fatal(err)
		}
	}
}
