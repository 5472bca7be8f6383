package sqldriver

import (
	"math"
	"strconv"
	"time"

	"github.com/elum-utils/sqlsession"
)

// Layouts tried, in order, for timestamps the driver hands back as text.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01-02 15:04:05.999999999 -0700 MST",
}

// convert maps a value scanned into *any onto a Value, using the declared
// column type to interpret text and integers.
func convert(src any, col sqlsession.Column) (sqlsession.Value, error) {
	switch v := src.(type) {
	case nil:
		return sqlsession.Null, nil
	case int64:
		if col.Type == sqlsession.Boolean {
			return sqlsession.BoolValue(v != 0), nil
		}
		return sqlsession.IntValue(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return sqlsession.DecimalValue(strconv.FormatUint(v, 10)), nil
		}
		return sqlsession.IntValue(int64(v)), nil
	case float64:
		if col.Type == sqlsession.Decimal {
			return sqlsession.DecimalValue(strconv.FormatFloat(v, 'f', -1, 64)), nil
		}
		return sqlsession.FloatValue(v), nil
	case float32:
		return convert(float64(v), col)
	case bool:
		return sqlsession.BoolValue(v), nil
	case time.Time:
		return sqlsession.TimeValue(v), nil
	case string:
		return text(v, col), nil
	case []byte:
		switch col.Type {
		case sqlsession.Binary, sqlsession.Unknown:
			return sqlsession.BytesValue(v), nil
		case sqlsession.Boolean:
			// BIT(1)
			if len(v) == 1 && v[0] <= 1 {
				return sqlsession.BoolValue(v[0] == 1), nil
			}
		}
		return text(string(v), col), nil
	}
	return sqlsession.ValueOf(src)
}

// text parses s according to the column type and falls back to a string.
func text(s string, col sqlsession.Column) sqlsession.Value {
	switch col.Type {
	case sqlsession.Integer:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return sqlsession.IntValue(n)
		}
		if _, err := strconv.ParseUint(s, 10, 64); err == nil {
			return sqlsession.DecimalValue(s)
		}
	case sqlsession.Float:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return sqlsession.FloatValue(f)
		}
	case sqlsession.Decimal:
		return sqlsession.DecimalValue(s)
	case sqlsession.Boolean:
		if b, err := strconv.ParseBool(s); err == nil {
			return sqlsession.BoolValue(b)
		}
	case sqlsession.Timestamp:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return sqlsession.TimeValue(t)
			}
		}
	}
	return sqlsession.StringValue(s)
}
