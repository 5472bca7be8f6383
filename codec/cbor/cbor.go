// Package cbor provides a CBOR (RFC 8949) codec for cached query results.
package cbor

import (
	"math"

	"github.com/fxamacker/cbor/v2"
)

var (
	// Deterministic output, so equal results produce equal cache entries.
	encMode, _ = cbor.CoreDetEncOptions().EncMode()

	// A cached result is one array element per row; the default limit of
	// 131072 elements would reject large results.
	decMode, _ = cbor.DecOptions{
		MaxArrayElements: math.MaxInt32,
		MaxMapPairs:      math.MaxInt32,
	}.DecMode()
)

// CborCodec implements sqlsession.Codec with github.com/fxamacker/cbor.
type CborCodec struct{}

func (CborCodec) Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

func (CborCodec) Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
