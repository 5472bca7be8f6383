package flightsql

import (
	"context"
	"encoding/base64"
)

// grpcCredentials attaches authentication and user supplied options to every call.
type grpcCredentials struct {
	username string
	password string
	token    string
	params   map[string]string
	secure   bool
}

func (g grpcCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	md := make(map[string]string, len(g.params)+1)

	for k, v := range g.params {
		md[k] = v
	}

	switch {
	case g.token != "":
		md["authorization"] = "Bearer " + g.token
	case g.username != "":
		md["authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(g.username+":"+g.password))
	}

	return md, nil
}

// RequireTransportSecurity follows the connection: plaintext endpoints
// (useEncryption=false) still receive credentials.
func (g grpcCredentials) RequireTransportSecurity() bool {
	return g.secure
}

func (g grpcCredentials) empty() bool {
	return g.token == "" && g.username == "" && len(g.params) == 0
}
