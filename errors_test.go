package sqlsession

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Formatting(t *testing.T) {
	tests := []struct {
		err    *Error
		expect string
	}{
		{&Error{Code: CodeExecution, Number: 1064, SQLState: "42000", Message: "syntax error"},
			"execution: syntax error (error 1064, sqlstate 42000)"},
		{&Error{Code: CodeExecution, Number: 1064, Message: "syntax error"},
			"execution: syntax error (error 1064)"},
		{&Error{Code: CodeConnection, SQLState: "08006", Message: "lost"},
			"connection: lost (sqlstate 08006)"},
		{&Error{Code: CodeExecution, Message: "execute statement", Err: errors.New("boom")},
			"execution: execute statement: boom"},
		{&Error{Code: 99, Message: "odd"}, "code(99): odd"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expect, tt.err.Error())
	}
}

func TestError_Is(t *testing.T) {
	err := NewError(CodeUnboundParameter, "parameter %d of %d is not bound", 1, 1)

	assert.ErrorIs(t, err, ErrUnboundParameter)
	assert.NotErrorIs(t, err, ErrIndexOutOfRange)
	assert.False(t, errors.Is(err, errors.New("other")))

	wrapped := fmt.Errorf("query users: %w", err)
	assert.ErrorIs(t, wrapped, ErrUnboundParameter)

	var e *Error
	require.ErrorAs(t, wrapped, &e)
	assert.Equal(t, CodeUnboundParameter, e.Code)
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []*Error{
		ErrConnection, ErrInvalidStatement, ErrUnboundParameter, ErrIndexOutOfRange,
		ErrTypeMismatch, ErrExecution, ErrNotPositioned, ErrUnknownColumn,
		ErrUseAfterClose, ErrNullValue,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			assert.Equal(t, i == j, errors.Is(a, b), "%s vs %s", a.Code, b.Code)
		}
	}
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(CodeExecution, nil, "nothing"))

	cause := context.DeadlineExceeded
	err := WrapError(CodeExecution, cause, "execute statement")
	assert.ErrorIs(t, err, ErrExecution)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	lost := &Error{Code: CodeConnection, SQLState: "08006", Message: "connection lost"}
	assert.Same(t, lost, WrapError(CodeExecution, lost, "execute statement"), "kind must survive propagation")
}
