package sqldriver

import (
	"net"
	"net/url"
	"time"

	"github.com/elum-utils/sqlsession"
	"github.com/go-sql-driver/mysql"
)

const mysqlDefaultPort = "3306"

// mysqlDSN builds a go-sql-driver DSN. Times are always parsed into time.Time.
func mysqlDSN(cfg sqlsession.Config) (string, error) {
	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.DBName = cfg.Path
	c.ParseTime = true

	if cfg.Host != "" {
		c.Net = "tcp"
		c.Addr = cfg.Host
		if cfg.Port() == "" {
			c.Addr = net.JoinHostPort(cfg.Hostname(), mysqlDefaultPort)
		}
	}

	for key, value := range cfg.Params {
		switch key {
		case "schema":
			// Used by PrepareCall only.
		case "timeout":
			d, err := time.ParseDuration(value)
			if err != nil {
				return "", sqlsession.WrapError(sqlsession.CodeConnection, err, "invalid timeout %q", value)
			}
			c.Timeout = d
		case "tls":
			c.TLSConfig = value
		default:
			if c.Params == nil {
				c.Params = make(map[string]string)
			}
			c.Params[key] = value
		}
	}

	return c.FormatDSN(), nil
}

// sqliteDSN turns sqlite://[dir]/path?options into a modernc.org/sqlite file
// name. Options (e.g. _pragma) are passed through as the query string.
func sqliteDSN(cfg sqlsession.Config) (string, error) {
	var name string
	switch {
	case cfg.Path == ":memory:":
		name = ":memory:"
	case cfg.Host != "":
		name = cfg.Host + "/" + cfg.Path
	default:
		name = "/" + cfg.Path
	}

	if len(cfg.Params) > 0 {
		values := url.Values{}
		for k, v := range cfg.Params {
			values.Set(k, v)
		}
		name += "?" + values.Encode()
	}
	return name, nil
}
