package flightsql

import (
	"crypto/tls"
	"strconv"
	"time"

	"github.com/elum-utils/sqlsession"
)

// Schemes accepted by Driver, with whether they use TLS unless told otherwise.
// arrow-flight-sql follows the JDBC driver and encrypts by default.
var schemes = map[string]bool{
	"arrow-flight-sql": true,
	"flightsql":        false,
	"grpc":             false,
	"grpc+tcp":         false,
	"grpc+tls":         true,
}

type config struct {
	addr     string
	username string
	password string
	token    string
	timeout  time.Duration
	params   map[string]string // Forwarded as gRPC metadata on every call.

	tlsEnabled bool
	tlsConfig  *tls.Config
}

func parseConfig(cfg sqlsession.Config) (*config, error) {
	secure, ok := schemes[cfg.Scheme]
	if !ok {
		return nil, sqlsession.NewError(sqlsession.CodeConnection, "unsupported scheme %q", cfg.Scheme)
	}
	if cfg.Host == "" {
		return nil, sqlsession.NewError(sqlsession.CodeConnection, "flight sql url needs host:port")
	}

	c := &config{
		addr:       cfg.Host,
		username:   cfg.User,
		password:   cfg.Password,
		params:     make(map[string]string),
		tlsEnabled: secure,
	}
	var skipVerify bool

	for key, v := range cfg.Params {
		var err error
		switch key {
		case "useEncryption":
			c.tlsEnabled, err = strconv.ParseBool(v)
		case "tls":
			switch v {
			case "true", "enabled":
				c.tlsEnabled = true
			case "false", "disabled":
				c.tlsEnabled = false
			case "skip-verify":
				c.tlsEnabled, skipVerify = true, true
			default:
				return nil, sqlsession.NewError(sqlsession.CodeConnection, "invalid value %q for option tls", v)
			}
		case "disableCertificateVerification":
			skipVerify, err = strconv.ParseBool(v)
		case "token":
			c.token = v
		case "timeout":
			c.timeout, err = time.ParseDuration(v)
		case "user":
			// JDBC style credentials in the query string.
			if c.username == "" {
				c.username = v
			}
		case "password":
			if c.password == "" {
				c.password = v
			}
		default:
			c.params[key] = v
		}
		if err != nil {
			return nil, sqlsession.WrapError(sqlsession.CodeConnection, err, "invalid value %q for option %s", v, key)
		}
	}

	if c.tlsEnabled {
		c.tlsConfig = &tls.Config{
			ServerName:         cfg.Hostname(),
			InsecureSkipVerify: skipVerify,
		}
	}
	return c, nil
}
