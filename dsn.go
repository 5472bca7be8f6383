package sqlsession

import (
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
)

// secretParams are options whose values never appear in rendered URLs or
// error messages. Keys are matched case-insensitively.
var secretParams = map[string]bool{
	"password": true,
	"passwd":   true,
	"token":    true,
}

const redactedValue = "xxxxx"

func isSecret(key string) bool {
	return secretParams[strings.ToLower(key)]
}

// redact renders u with the user-info password and secret options masked.
func redact(u *url.URL) string {
	r := *u
	if q := r.Query(); len(q) > 0 {
		for k := range q {
			if isSecret(k) {
				q[k] = []string{redactedValue}
			}
		}
		r.RawQuery = q.Encode()
	}
	return r.Redacted()
}

// Config is a parsed connection string plus credentials, handed to Driver.Connect.
type Config struct {
	Scheme   string            // URL scheme, e.g. "arrow-flight-sql", "mysql", "sqlite".
	Host     string            // host[:port], may be empty for path based endpoints.
	Path     string            // URL path without the leading slash.
	User     string            // Username, empty when none was given.
	Password string            // Password, empty when none was given.
	Params   map[string]string // Driver specific options, passed through verbatim.
}

// ParseURL parses scheme://[user[:password]@]host:port/path?option=value.
// A leading "jdbc:" is accepted and dropped. Options must not repeat.
func ParseURL(raw string) (Config, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "jdbc:")
	if raw == "" {
		return Config{}, NewError(CodeConnection, "empty connection url")
	}

	u, err := url.Parse(raw)
	if err != nil {
		// *url.Error repeats the raw url, secrets included.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return Config{}, WrapError(CodeConnection, err, "invalid connection url")
	}
	if u.Scheme == "" {
		return Config{}, NewError(CodeConnection, "connection url %q has no scheme", redact(u))
	}
	if u.Opaque != "" {
		return Config{}, NewError(CodeConnection, "connection url %q is not of the form scheme://host", redact(u))
	}
	if u.Host == "" && strings.Trim(u.Path, "/") == "" {
		return Config{}, NewError(CodeConnection, "connection url %q has neither host nor path", redact(u))
	}
	if strings.HasSuffix(u.Host, ":") {
		return Config{}, NewError(CodeConnection, "connection url %q has an empty port", redact(u))
	}

	cfg := Config{
		Scheme: strings.ToLower(u.Scheme),
		Host:   u.Host,
		Path:   strings.TrimPrefix(u.Path, "/"),
		Params: make(map[string]string),
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Password, _ = u.User.Password()
	}

	for key, values := range u.Query() {
		if len(values) > 1 {
			return Config{}, NewError(CodeConnection, "too many values for option %q", key)
		}
		var v string
		if len(values) > 0 {
			v = values[0]
		}
		cfg.Params[key] = v
	}

	return cfg, nil
}

// Hostname returns the host without the port.
func (c Config) Hostname() string {
	u := url.URL{Host: c.Host}
	return u.Hostname()
}

// Port returns the port, or "" when none was given.
func (c Config) Port() string {
	u := url.URL{Host: c.Host}
	return u.Port()
}

// Param returns the value of a driver option and whether it was set.
func (c Config) Param(key string) (string, bool) {
	v, ok := c.Params[key]
	return v, ok
}

// URL renders the config back into a connection string without the password.
// Secret options such as token are masked.
func (c Config) URL() string {
	u := url.URL{Scheme: c.Scheme, Host: c.Host, Path: "/" + c.Path}
	if c.User != "" {
		u.User = url.User(c.User)
	}
	values := url.Values{}
	for k, v := range c.Params {
		if isSecret(k) {
			v = redactedValue
		}
		values.Set(k, v)
	}
	u.RawQuery = values.Encode()
	return u.String()
}

// namespace identifies the endpoint and the identity results are read as:
// scheme, host and path, followed by a hash of the user and the options.
// Options can select a catalog or carry a token, so they take part too.
// The password is left out.
func (c Config) namespace() string {
	keys := make([]string, 0, len(c.Params))
	for k := range c.Params {
		if strings.EqualFold(k, "password") || strings.EqualFold(k, "passwd") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var id strings.Builder
	id.WriteString(c.User)
	for _, k := range keys {
		id.WriteByte(0)
		id.WriteString(k)
		id.WriteByte('=')
		id.WriteString(c.Params[k])
	}
	sum := xxh3.HashString128(id.String()).Bytes()

	return c.Scheme + "://" + c.Host + "/" + c.Path + "#" + hex.EncodeToString(sum[:])
}
