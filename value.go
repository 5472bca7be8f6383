package sqlsession

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind is the runtime type tag of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindDecimal
	KindString
	KindTimestamp
	KindBool
	KindBytes
)

var kindNames = [...]string{
	KindNull:      "null",
	KindInt:       "int",
	KindFloat:     "float",
	KindDecimal:   "decimal",
	KindString:    "string",
	KindTimestamp: "timestamp",
	KindBool:      "bool",
	KindBytes:     "bytes",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// Value is a typed scalar exchanged with drivers: a bound parameter or a
// column of a result row. The zero Value is SQL NULL.
//
// Fields are exported so cached results can be encoded by any Codec.
// Timestamps are stored in Int as UTC Unix nanoseconds, decimals in Str.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Str   string
	Bytes []byte
	Bool  bool
}

// Null is the SQL NULL value.
var Null = Value{}

func IntValue(v int64) Value      { return Value{Kind: KindInt, Int: v} }
func FloatValue(v float64) Value  { return Value{Kind: KindFloat, Float: v} }
func StringValue(v string) Value  { return Value{Kind: KindString, Str: v} }
func BoolValue(v bool) Value      { return Value{Kind: KindBool, Bool: v} }
func BytesValue(v []byte) Value   { return Value{Kind: KindBytes, Bytes: v} }
func DecimalValue(v string) Value { return Value{Kind: KindDecimal, Str: v} }
func TimeValue(v time.Time) Value { return Value{Kind: KindTimestamp, Int: v.UTC().UnixNano()} }

// IsNull reports whether v is SQL NULL.
func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) check(want ...Kind) error {
	if v.Kind == KindNull {
		return ErrNullValue
	}
	for _, k := range want {
		if v.Kind == k {
			return nil
		}
	}
	return NewError(CodeTypeMismatch, "cannot read %s value as %s", v.Kind, want[0])
}

// AsInt64 returns an integer value. Floats are not truncated silently.
func (v Value) AsInt64() (int64, error) {
	if err := v.check(KindInt, KindBool); err != nil {
		return 0, err
	}
	if v.Kind == KindBool {
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	}
	return v.Int, nil
}

// AsFloat64 returns a floating point value, widening integers and decimals.
func (v Value) AsFloat64() (float64, error) {
	if err := v.check(KindFloat, KindInt, KindDecimal); err != nil {
		return 0, err
	}
	switch v.Kind {
	case KindInt:
		return float64(v.Int), nil
	case KindDecimal:
		f, err := strconv.ParseFloat(v.Str, 64)
		if err != nil {
			return 0, NewError(CodeTypeMismatch, "decimal %q is not a number", v.Str)
		}
		return f, nil
	}
	return v.Float, nil
}

// AsString returns a string value. Decimals and byte strings are returned as text.
func (v Value) AsString() (string, error) {
	if err := v.check(KindString, KindDecimal, KindBytes); err != nil {
		return "", err
	}
	if v.Kind == KindBytes {
		return string(v.Bytes), nil
	}
	return v.Str, nil
}

// AsDecimal returns the exact decimal text of a decimal or integer value.
func (v Value) AsDecimal() (string, error) {
	if err := v.check(KindDecimal, KindInt); err != nil {
		return "", err
	}
	if v.Kind == KindInt {
		return strconv.FormatInt(v.Int, 10), nil
	}
	return v.Str, nil
}

// AsBool returns a boolean value.
func (v Value) AsBool() (bool, error) {
	if err := v.check(KindBool); err != nil {
		return false, err
	}
	return v.Bool, nil
}

// AsTime returns a timestamp value in UTC.
func (v Value) AsTime() (time.Time, error) {
	if err := v.check(KindTimestamp); err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, v.Int).UTC(), nil
}

// AsBytes returns a byte string. Strings are returned as their bytes.
func (v Value) AsBytes() ([]byte, error) {
	if err := v.check(KindBytes, KindString); err != nil {
		return nil, err
	}
	if v.Kind == KindString {
		return []byte(v.Str), nil
	}
	return v.Bytes, nil
}

// Any returns v as a plain Go value (nil for NULL).
func (v Value) Any() any {
	switch v.Kind {
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindDecimal, KindString:
		return v.Str
	case KindTimestamp:
		return time.Unix(0, v.Int).UTC()
	case KindBool:
		return v.Bool
	case KindBytes:
		return v.Bytes
	}
	return nil
}

// String renders v for display; NULL is rendered as "NULL".
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindTimestamp:
		return time.Unix(0, v.Int).UTC().Format(time.RFC3339Nano)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindBytes:
		return fmt.Sprintf("%x", v.Bytes)
	}
	return v.Str
}

// ValueOf converts a Go scalar into a Value. Pointers are dereferenced, nil
// becomes NULL. Unsupported types fail with ErrTypeMismatch.
func ValueOf(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null, nil
	case Value:
		return v, nil
	case int:
		return IntValue(int64(v)), nil
	case int8:
		return IntValue(int64(v)), nil
	case int16:
		return IntValue(int64(v)), nil
	case int32:
		return IntValue(int64(v)), nil
	case int64:
		return IntValue(v), nil
	case uint:
		return uintValue(uint64(v))
	case uint8:
		return IntValue(int64(v)), nil
	case uint16:
		return IntValue(int64(v)), nil
	case uint32:
		return IntValue(int64(v)), nil
	case uint64:
		return uintValue(v)
	case float32:
		return FloatValue(float64(v)), nil
	case float64:
		return FloatValue(v), nil
	case string:
		return StringValue(v), nil
	case []byte:
		if v == nil {
			return Null, nil
		}
		return BytesValue(v), nil
	case bool:
		return BoolValue(v), nil
	case time.Time:
		return TimeValue(v), nil
	case *int:
		return deref(v)
	case *int64:
		return deref(v)
	case *float64:
		return deref(v)
	case *string:
		return deref(v)
	case *bool:
		return deref(v)
	case *time.Time:
		return deref(v)
	}
	return Null, NewError(CodeTypeMismatch, "unsupported parameter type %T", x)
}

func uintValue(v uint64) (Value, error) {
	if v > math.MaxInt64 {
		return Null, NewError(CodeTypeMismatch, "unsigned value %d overflows int64", v)
	}
	return IntValue(int64(v)), nil
}

func deref[T any](p *T) (Value, error) {
	if p == nil {
		return Null, nil
	}
	return ValueOf(*p)
}
