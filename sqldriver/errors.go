package sqldriver

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/elum-utils/sqlsession"
	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
)

// SQLSTATE values reporting a broken or refused connection.
var connectionLostStates = map[string]struct{}{
	"08000": {}, // connection exception
	"08001": {}, // unable to establish connection
	"08003": {}, // connection does not exist
	"08004": {}, // server rejected the connection
	"08006": {}, // connection failure
	"08007": {}, // transaction resolution unknown
	"08P01": {}, // protocol violation
	"08S01": {}, // communication link failure (MySQL)
	"25006": {}, // read only transaction
	"57P02": {}, // crash shutdown
}

var connectionLostPhrases = []string{
	"server closed the connection unexpectedly",
	"connection has been lost",
	"connection lost",
}

// IsConnectionLost reports whether err means the connection to the server is
// gone, as opposed to the statement itself failing.
func IsConnectionLost(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	if state := sqlState(err); state != "" {
		if _, ok := connectionLostStates[state]; ok {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range connectionLostPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

func sqlState(err error) string {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		if me.SQLState == [5]byte{} {
			return ""
		}
		return string(me.SQLState[:])
	}

	var withState interface{ SQLState() string }
	if errors.As(err, &withState) {
		return withState.SQLState()
	}
	return ""
}

// translate converts a database/sql error into a *sqlsession.Error of the
// given kind, or a connection error when the connection is gone. Server error
// numbers and SQLSTATEs are preserved.
func translate(err error, code sqlsession.ErrorCode) error {
	if err == nil {
		return nil
	}
	var se *sqlsession.Error
	if errors.As(err, &se) {
		return se
	}

	if IsConnectionLost(err) {
		code = sqlsession.CodeConnection
	}
	e := &sqlsession.Error{Code: code, SQLState: sqlState(err), Message: err.Error(), Err: err}

	var me *mysql.MySQLError
	var le *sqlite.Error
	switch {
	case errors.As(err, &me):
		e.Number = me.Number
		e.Message = me.Message
	case errors.As(err, &le):
		e.Number = uint16(le.Code())
	}
	return e
}
