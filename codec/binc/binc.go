// Package binc provides a Binc codec for cached query results.
package binc

import (
	"bytes"

	"github.com/ugorji/go/codec"
)

// handle is safe for concurrent use once configured.
var handle = new(codec.BincHandle)

type BincCodec struct{}

func (BincCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	err := codec.NewEncoder(&buf, handle).Encode(v)
	return buf.Bytes(), err
}

func (BincCodec) Unmarshal(data []byte, v any) error {
	return codec.NewDecoderBytes(data, handle).Decode(v)
}
