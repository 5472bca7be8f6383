// Package gob provides an encoding/gob codec for cached query results.
package gob

import (
	"bytes"
	"encoding/gob"
	"errors"
	"reflect"
)

type GobCodec struct{}

func (GobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(v)
	return buf.Bytes(), err
}

// Unmarshal zeroes v before decoding. gob omits zero fields from the stream,
// so a reused destination would otherwise keep stale values, for example a
// NULL decoded over an earlier integer.
func (GobCodec) Unmarshal(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("gob: Unmarshal needs a non-nil pointer")
	}
	rv.Elem().SetZero()
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
