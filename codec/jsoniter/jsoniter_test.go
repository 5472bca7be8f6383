package jsoniter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elum-utils/sqlsession"
	"github.com/elum-utils/sqlsession/codec/codectest"
)

func TestJsoniterCodec_CachedResult(t *testing.T) {
	codectest.CachedRoundTrip(t, JsoniterCodec{})
}

func TestJsoniterCodec_TruncatedData(t *testing.T) {
	codec := JsoniterCodec{}
	data, err := codec.Marshal([][]sqlsession.Value{{sqlsession.StringValue("truncated"), sqlsession.IntValue(12345)}})
	require.NoError(t, err)

	var rows [][]sqlsession.Value
	assert.Error(t, codec.Unmarshal(data[:len(data)/2], &rows))
}

func BenchmarkJsoniterCodec_Marshal(b *testing.B) {
	codec := JsoniterCodec{}
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
