// Package jsoniter provides a JSON codec for cached query results, handy
// when the cache is inspected by other tools.
package jsoniter

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JsoniterCodec implements sqlsession.Codec with github.com/json-iterator/go.
// Float values must be finite.
type JsoniterCodec struct{}

func (JsoniterCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JsoniterCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
