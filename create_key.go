package sqlsession

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// CreateKey builds a deterministic cache key for a query and its bound
// parameters: "namespace:hash(query):p1:p2:...". The namespace separates
// endpoints sharing one external Storage. Parameters are written with a kind
// prefix so that, say, the string "1" and the integer 1 never collide.
func CreateKey(namespace, query string, params ...Value) string {
	sum := xxh3.HashString128(query).Bytes()

	// namespace + ':' + 32 hex chars, plus a rough per-parameter estimate
	sizeEstimate := len(namespace) + 1 + hex.EncodedLen(len(sum))
	for _, p := range params {
		sizeEstimate += 3 + len(p.Str) + 2*len(p.Bytes) + 20
	}

	var value strings.Builder
	value.Grow(sizeEstimate)

	if namespace != "" {
		value.WriteString(namespace)
		value.WriteByte(':')
	}
	value.WriteString(hex.EncodeToString(sum[:]))

	for _, p := range params {
		value.WriteByte(':')
		switch p.Kind {
		case KindNull:
			value.WriteString("n")
		case KindInt:
			value.WriteString("i")
			value.WriteString(strconv.FormatInt(p.Int, 10))
		case KindFloat:
			value.WriteString("f")
			value.WriteString(strconv.FormatFloat(p.Float, 'g', -1, 64))
		case KindDecimal:
			value.WriteString("d")
			value.WriteString(p.Str)
		case KindString:
			value.WriteString("s")
			value.WriteString(strconv.Quote(p.Str))
		case KindTimestamp:
			value.WriteString("t")
			value.WriteString(strconv.FormatInt(p.Int, 10))
		case KindBool:
			value.WriteString("b")
			value.WriteString(strconv.FormatBool(p.Bool))
		case KindBytes:
			value.WriteString("x")
			value.WriteString(hex.EncodeToString(p.Bytes))
		}
	}

	return value.String()
}
