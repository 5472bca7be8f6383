package sqlsession

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDataType(t *testing.T) {
	tests := map[string]DataType{
		"BIGINT":                   Integer,
		"int unsigned":             Integer,
		"INT4":                     Integer,
		"DOUBLE":                   Float,
		"double precision":         Float,
		"DECIMAL(10,2)":            Decimal,
		"numeric":                  Decimal,
		"VARCHAR(255)":             String,
		"TEXT":                     String,
		"DATETIME":                 Timestamp,
		"timestamp with time zone": Timestamp,
		"BOOLEAN":                  Boolean,
		"BLOB":                     Binary,
		"bytea":                    Binary,
		"":                         Unknown,
		"geometry":                 Unknown,
	}
	for name, expect := range tests {
		assert.Equal(t, expect, ParseDataType(name), name)
	}
}

func TestDataTypeAccepts(t *testing.T) {
	assert.True(t, Integer.Accepts(KindInt))
	assert.True(t, Integer.Accepts(KindNull))
	assert.False(t, Integer.Accepts(KindString))
	assert.False(t, Integer.Accepts(KindFloat))
	assert.True(t, Float.Accepts(KindInt))
	assert.True(t, Decimal.Accepts(KindFloat))
	assert.True(t, String.Accepts(KindString))
	assert.False(t, String.Accepts(KindInt))
	assert.True(t, Binary.Accepts(KindString))
	assert.False(t, Timestamp.Accepts(KindString))
	assert.True(t, Unknown.Accepts(KindBytes))
	assert.Equal(t, "timestamp", Timestamp.String())
}
