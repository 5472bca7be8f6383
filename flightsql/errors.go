package flightsql

import (
	"context"
	"errors"

	"github.com/elum-utils/sqlsession"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// translate converts a gRPC failure into a *sqlsession.Error of the given
// kind. Unreachable servers and rejected credentials are connection errors
// wherever they happen.
func translate(err error, code sqlsession.ErrorCode) error {
	if err == nil {
		return nil
	}
	var se *sqlsession.Error
	if errors.As(err, &se) {
		return se
	}

	e := &sqlsession.Error{Code: code, Message: err.Error(), Err: err}

	st, ok := status.FromError(err)
	if !ok {
		return e
	}
	e.Message = st.Message()

	switch st.Code() {
	case codes.Unavailable, codes.Unauthenticated, codes.PermissionDenied:
		e.Code = sqlsession.CodeConnection
	case codes.DeadlineExceeded:
		e.Err = errors.Join(err, context.DeadlineExceeded)
	case codes.Canceled:
		e.Err = errors.Join(err, context.Canceled)
	}
	return e
}

// reachable reports whether a check call reached a server that accepted the
// credentials, even if it does not implement the call.
func reachable(err error) bool {
	if err == nil {
		return true
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.Unauthenticated, codes.PermissionDenied,
		codes.DeadlineExceeded, codes.Canceled:
		return false
	}
	return true
}
