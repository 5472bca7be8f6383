package sqlsession

import (
	"fmt"
)

// ErrorCode identifies the kind of failure carried by an Error.
type ErrorCode uint16

const (
	CodeConnection       ErrorCode = iota + 1 // Network or authentication failure at open.
	CodeInvalidStatement                      // Malformed or empty SQL text.
	CodeUnboundParameter                      // A placeholder has no bound value.
	CodeIndexOutOfRange                       // Parameter index outside 1..NumInput.
	CodeTypeMismatch                          // Value incompatible with the expected type.
	CodeExecution                             // Server or driver rejected the statement.
	CodeNotPositioned                         // Column access outside a real row.
	CodeUnknownColumn                         // Column index or name not in the result.
	CodeUseAfterClose                         // Object (or its connection) was closed.
	CodeNullValue                             // Typed read of an SQL NULL.
)

var codeNames = map[ErrorCode]string{
	CodeConnection:       "connection",
	CodeInvalidStatement: "invalid statement",
	CodeUnboundParameter: "unbound parameter",
	CodeIndexOutOfRange:  "index out of range",
	CodeTypeMismatch:     "type mismatch",
	CodeExecution:        "execution",
	CodeNotPositioned:    "not positioned",
	CodeUnknownColumn:    "unknown column",
	CodeUseAfterClose:    "use after close",
	CodeNullValue:        "null value",
}

// String returns a short human readable name of the code.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", uint16(c))
}

// Sentinel errors, one per failure kind. Match with errors.Is.
var (
	ErrConnection       = &Error{Code: CodeConnection, Message: "connection failed"}
	ErrInvalidStatement = &Error{Code: CodeInvalidStatement, Message: "invalid statement"}
	ErrUnboundParameter = &Error{Code: CodeUnboundParameter, Message: "unbound parameter"}
	ErrIndexOutOfRange  = &Error{Code: CodeIndexOutOfRange, Message: "parameter index out of range"}
	ErrTypeMismatch     = &Error{Code: CodeTypeMismatch, Message: "type mismatch"}
	ErrExecution        = &Error{Code: CodeExecution, Message: "execution failed"}
	ErrNotPositioned    = &Error{Code: CodeNotPositioned, Message: "cursor is not positioned on a row"}
	ErrUnknownColumn    = &Error{Code: CodeUnknownColumn, Message: "unknown column"}
	ErrUseAfterClose    = &Error{Code: CodeUseAfterClose, Message: "use after close"}
	ErrNullValue        = &Error{Code: CodeNullValue, Message: "value is NULL"}
)

// Error is the single error type returned by this package and its drivers.
type Error struct {
	Code     ErrorCode // Failure kind.
	Number   uint16    // Server error number, when the backend reports one.
	SQLState string    // Five character SQLSTATE, when the backend reports one.
	Message  string    // Descriptive message.
	Err      error     // Underlying cause, if any.
}

// Error returns the message formatted with the code, the server number and SQL state when set.
func (e *Error) Error() string {
	msg := e.Code.String() + ": " + e.Message
	switch {
	case e.Number != 0 && e.SQLState != "":
		msg = fmt.Sprintf("%s (error %d, sqlstate %s)", msg, e.Number, e.SQLState)
	case e.Number != 0:
		msg = fmt.Sprintf("%s (error %d)", msg, e.Number)
	case e.SQLState != "":
		msg = fmt.Sprintf("%s (sqlstate %s)", msg, e.SQLState)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.Code == e.Code
	}
	return false
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error of the given kind with a formatted message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps err as an Error of the given kind. An err that already is an
// *Error is returned unchanged so the original kind survives propagation.
func WrapError(code ErrorCode, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}
