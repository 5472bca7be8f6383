package sqlsession

import (
	"strings"
	"sync"
)

// keyBufPool is a pool of reusable byte buffers for CALL statement generation.
// Each buffer is initially allocated with 1024 bytes capacity to accommodate
// most stored procedure calls without reallocation.
var keyBufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 1024)
		return &b
	},
}

// generateCall builds "CALL [schema.]procedure(?, ?, ...)" with numArgs
// placeholders. The schema prefix is skipped when procedure is already qualified.
func generateCall(schema, procedure string, numArgs int) string {
	if strings.Contains(procedure, ".") {
		schema = ""
	}

	procLen := len(procedure)
	dbLen := len(schema)

	// "CALL " (5) + procedure name + "()" (2)
	size := 5 + procLen + 2
	if dbLen > 0 {
		size += dbLen + 1 // +1 for the dot separator
	}
	if numArgs > 0 {
		// "?" per argument plus ", " between them: 3n - 2
		size += numArgs*3 - 2
	}

	p := keyBufPool.Get().(*[]byte)
	buf := *p
	if cap(buf) < size {
		buf = make([]byte, 0, size)
	} else {
		buf = buf[:0]
	}

	buf = append(buf, "CALL "...)
	if dbLen > 0 {
		buf = append(buf, schema...)
		buf = append(buf, '.')
	}
	buf = append(buf, procedure...)
	buf = append(buf, '(')
	for i := 0; i < numArgs; i++ {
		if i > 0 {
			buf = append(buf, ',', ' ')
		}
		buf = append(buf, '?')
	}
	buf = append(buf, ')')

	result := string(buf)

	// Reset to length 0 so the pooled buffer does not retain old data.
	*p = buf[:0]
	keyBufPool.Put(p)

	return result
}
