package flightsql

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/decimal256"
	"github.com/elum-utils/sqlsession"
)

// Column metadata key carrying the server side type name.
const typeNameKey = "ARROW:FLIGHT:SQL:TYPE_NAME"

// *** Schema conversions ***

func dataType(dt arrow.DataType) sqlsession.DataType {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return sqlsession.Integer
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return sqlsession.Float
	case arrow.DECIMAL128, arrow.DECIMAL256:
		return sqlsession.Decimal
	case arrow.STRING, arrow.LARGE_STRING:
		return sqlsession.String
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY:
		return sqlsession.Binary
	case arrow.BOOL:
		return sqlsession.Boolean
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64, arrow.TIME32, arrow.TIME64:
		return sqlsession.Timestamp
	}
	return sqlsession.Unknown
}

func columns(schema *arrow.Schema) []sqlsession.Column {
	cols := make([]sqlsession.Column, 0, len(schema.Fields()))
	for _, f := range schema.Fields() {
		typeName := f.Type.String()
		if i := f.Metadata.FindKey(typeNameKey); i >= 0 {
			typeName = f.Metadata.Values()[i]
		}
		cols = append(cols, sqlsession.Column{
			Name:         f.Name,
			Type:         dataType(f.Type),
			DatabaseType: typeName,
			Nullable:     f.Nullable,
		})
	}
	return cols
}

// parameterTypes returns nil when the server sent no parameter schema.
func parameterTypes(schema *arrow.Schema) []sqlsession.DataType {
	if schema == nil {
		return nil
	}
	types := make([]sqlsession.DataType, len(schema.Fields()))
	for i, f := range schema.Fields() {
		types[i] = dataType(f.Type)
	}
	return types
}

// *** Arrow to Value ***

func fromArrow(arr arrow.Array, idx int) (sqlsession.Value, error) {
	if arr.IsNull(idx) {
		return sqlsession.Null, nil
	}

	switch c := arr.(type) {
	case *array.Null:
		return sqlsession.Null, nil
	case *array.Boolean:
		return sqlsession.BoolValue(c.Value(idx)), nil
	case *array.Int8:
		return sqlsession.IntValue(int64(c.Value(idx))), nil
	case *array.Int16:
		return sqlsession.IntValue(int64(c.Value(idx))), nil
	case *array.Int32:
		return sqlsession.IntValue(int64(c.Value(idx))), nil
	case *array.Int64:
		return sqlsession.IntValue(c.Value(idx)), nil
	case *array.Uint8:
		return sqlsession.IntValue(int64(c.Value(idx))), nil
	case *array.Uint16:
		return sqlsession.IntValue(int64(c.Value(idx))), nil
	case *array.Uint32:
		return sqlsession.IntValue(int64(c.Value(idx))), nil
	case *array.Uint64:
		v := c.Value(idx)
		if v > math.MaxInt64 {
			return sqlsession.DecimalValue(strconv.FormatUint(v, 10)), nil
		}
		return sqlsession.IntValue(int64(v)), nil
	case *array.Float16:
		return sqlsession.FloatValue(float64(c.Value(idx).Float32())), nil
	case *array.Float32:
		return sqlsession.FloatValue(float64(c.Value(idx))), nil
	case *array.Float64:
		return sqlsession.FloatValue(c.Value(idx)), nil
	case *array.Decimal128:
		dt := c.DataType().(*arrow.Decimal128Type)
		return sqlsession.DecimalValue(c.Value(idx).ToString(dt.Scale)), nil
	case *array.Decimal256:
		dt := c.DataType().(*arrow.Decimal256Type)
		return sqlsession.DecimalValue(c.Value(idx).ToString(dt.Scale)), nil
	case *array.String:
		return sqlsession.StringValue(strings.Clone(c.Value(idx))), nil
	case *array.LargeString:
		return sqlsession.StringValue(strings.Clone(c.Value(idx))), nil
	case *array.Binary:
		return sqlsession.BytesValue(bytes.Clone(c.Value(idx))), nil
	case *array.LargeBinary:
		return sqlsession.BytesValue(bytes.Clone(c.Value(idx))), nil
	case *array.FixedSizeBinary:
		return sqlsession.BytesValue(bytes.Clone(c.Value(idx))), nil
	case *array.Date32:
		return sqlsession.TimeValue(c.Value(idx).ToTime()), nil
	case *array.Date64:
		return sqlsession.TimeValue(c.Value(idx).ToTime()), nil
	case *array.Time32:
		dt := c.DataType().(*arrow.Time32Type)
		return sqlsession.TimeValue(c.Value(idx).ToTime(dt.Unit)), nil
	case *array.Time64:
		dt := c.DataType().(*arrow.Time64Type)
		return sqlsession.TimeValue(c.Value(idx).ToTime(dt.Unit)), nil
	case *array.Timestamp:
		dt := c.DataType().(*arrow.TimestampType)
		return sqlsession.TimeValue(c.Value(idx).ToTime(dt.Unit)), nil
	}

	return sqlsession.Null, sqlsession.NewError(sqlsession.CodeTypeMismatch, "unsupported arrow type %s", arr.DataType())
}

// *** Value to Arrow ***

// arrowType is the type a parameter is sent as when the server did not
// describe the parameters.
func arrowType(v sqlsession.Value) arrow.DataType {
	switch v.Kind {
	case sqlsession.KindInt:
		return arrow.PrimitiveTypes.Int64
	case sqlsession.KindFloat:
		return arrow.PrimitiveTypes.Float64
	case sqlsession.KindDecimal, sqlsession.KindString:
		return arrow.BinaryTypes.String
	case sqlsession.KindTimestamp:
		return &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}
	case sqlsession.KindBool:
		return arrow.FixedWidthTypes.Boolean
	case sqlsession.KindBytes:
		return arrow.BinaryTypes.Binary
	}
	return arrow.Null
}

func inferSchema(params []sqlsession.Value) *arrow.Schema {
	fields := make([]arrow.Field, len(params))
	for i, p := range params {
		fields[i] = arrow.Field{
			Name:     "parameter_" + strconv.Itoa(i+1),
			Type:     arrowType(p),
			Nullable: true,
		}
	}
	return arrow.NewSchema(fields, nil)
}

// bindable reports whether appendValue can fill every field of schema.
func bindable(schema *arrow.Schema, n int) bool {
	if schema == nil || len(schema.Fields()) != n {
		return false
	}
	for _, f := range schema.Fields() {
		switch f.Type.ID() {
		case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
			arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
			arrow.FLOAT32, arrow.FLOAT64, arrow.STRING, arrow.LARGE_STRING,
			arrow.BINARY, arrow.LARGE_BINARY, arrow.BOOL, arrow.TIMESTAMP,
			arrow.DATE32, arrow.DATE64, arrow.DECIMAL128, arrow.DECIMAL256, arrow.NULL:
		default:
			return false
		}
	}
	return true
}

func appendValue(builder array.Builder, v sqlsession.Value) error {
	if v.IsNull() {
		builder.AppendNull()
		return nil
	}

	switch b := builder.(type) {
	case *array.Int8Builder:
		n, err := intIn(v, math.MinInt8, math.MaxInt8)
		if err != nil {
			return err
		}
		b.Append(int8(n))
	case *array.Int16Builder:
		n, err := intIn(v, math.MinInt16, math.MaxInt16)
		if err != nil {
			return err
		}
		b.Append(int16(n))
	case *array.Int32Builder:
		n, err := intIn(v, math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		b.Append(int32(n))
	case *array.Int64Builder:
		n, err := v.AsInt64()
		if err != nil {
			return err
		}
		b.Append(n)
	case *array.Uint8Builder:
		n, err := intIn(v, 0, math.MaxUint8)
		if err != nil {
			return err
		}
		b.Append(uint8(n))
	case *array.Uint16Builder:
		n, err := intIn(v, 0, math.MaxUint16)
		if err != nil {
			return err
		}
		b.Append(uint16(n))
	case *array.Uint32Builder:
		n, err := intIn(v, 0, math.MaxUint32)
		if err != nil {
			return err
		}
		b.Append(uint32(n))
	case *array.Uint64Builder:
		n, err := intIn(v, 0, math.MaxInt64)
		if err != nil {
			return err
		}
		b.Append(uint64(n))
	case *array.Float32Builder:
		f, err := v.AsFloat64()
		if err != nil {
			return err
		}
		b.Append(float32(f))
	case *array.Float64Builder:
		f, err := v.AsFloat64()
		if err != nil {
			return err
		}
		b.Append(f)
	case *array.StringBuilder:
		s, err := v.AsString()
		if err != nil {
			return err
		}
		b.Append(s)
	case *array.LargeStringBuilder:
		s, err := v.AsString()
		if err != nil {
			return err
		}
		b.Append(s)
	case *array.BinaryBuilder:
		p, err := v.AsBytes()
		if err != nil {
			return err
		}
		b.Append(p)
	case *array.BooleanBuilder:
		x, err := v.AsBool()
		if err != nil {
			return err
		}
		b.Append(x)
	case *array.TimestampBuilder:
		t, err := v.AsTime()
		if err != nil {
			return err
		}
		ts, err := arrow.TimestampFromTime(t, b.Type().(*arrow.TimestampType).Unit)
		if err != nil {
			return sqlsession.WrapError(sqlsession.CodeTypeMismatch, err, "timestamp %s out of range", t)
		}
		b.Append(ts)
	case *array.Date32Builder:
		t, err := v.AsTime()
		if err != nil {
			return err
		}
		b.Append(arrow.Date32FromTime(t))
	case *array.Date64Builder:
		t, err := v.AsTime()
		if err != nil {
			return err
		}
		b.Append(arrow.Date64FromTime(t))
	case *array.Decimal128Builder:
		s, err := decimalText(v)
		if err != nil {
			return err
		}
		dt := b.Type().(*arrow.Decimal128Type)
		n, err := decimal128.FromString(s, dt.Precision, dt.Scale)
		if err != nil {
			return sqlsession.WrapError(sqlsession.CodeTypeMismatch, err, "decimal %q does not fit %s", s, dt)
		}
		b.Append(n)
	case *array.Decimal256Builder:
		s, err := decimalText(v)
		if err != nil {
			return err
		}
		dt := b.Type().(*arrow.Decimal256Type)
		n, err := decimal256.FromString(s, dt.Precision, dt.Scale)
		if err != nil {
			return sqlsession.WrapError(sqlsession.CodeTypeMismatch, err, "decimal %q does not fit %s", s, dt)
		}
		b.Append(n)
	default:
		return sqlsession.NewError(sqlsession.CodeTypeMismatch, "cannot bind %s value to %s parameter", v.Kind, builder.Type())
	}
	return nil
}

// decimalText returns the exact text of a decimal, integer or float value.
func decimalText(v sqlsession.Value) (string, error) {
	if v.Kind == sqlsession.KindFloat {
		return strconv.FormatFloat(v.Float, 'f', -1, 64), nil
	}
	return v.AsDecimal()
}

func intIn(v sqlsession.Value, lo, hi int64) (int64, error) {
	n, err := v.AsInt64()
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, sqlsession.NewError(sqlsession.CodeTypeMismatch, "value %d out of range [%d, %d]", n, lo, hi)
	}
	return n, nil
}
