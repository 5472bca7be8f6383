// Package flightsql connects sqlsession to Arrow Flight SQL servers.
//
// Connection URLs look like the JDBC driver's:
//
//	arrow-flight-sql://host:port/?useEncryption=false
//	grpc+tls://host:port/?token=...&disableCertificateVerification=true
//
// Recognised options are useEncryption (or tls), disableCertificateVerification,
// token, timeout, user and password. Every other option is sent to the server
// as gRPC metadata on each call.
package flightsql

import (
	"context"
	"time"

	"github.com/apache/arrow-go/v18/arrow/flight/flightsql"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/elum-utils/sqlsession"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// closeTimeout bounds the release of server side statements.
const closeTimeout = 10 * time.Second

// Driver implements sqlsession.Driver for Flight SQL.
type Driver struct {
	alloc   memory.Allocator
	options []grpc.DialOption
}

// New returns a driver. opts are appended to the dial options derived from
// the connection URL.
func New(opts ...grpc.DialOption) *Driver {
	return &Driver{alloc: memory.DefaultAllocator, options: opts}
}

// WithAllocator returns a copy of d that builds parameter records and reads
// results with alloc.
func (d *Driver) WithAllocator(alloc memory.Allocator) *Driver {
	c := *d
	c.alloc = alloc
	return &c
}

func (d *Driver) dialOptions(c *config) []grpc.DialOption {
	var transportCreds credentials.TransportCredentials
	if !c.tlsEnabled {
		transportCreds = insecure.NewCredentials()
	} else {
		transportCreds = credentials.NewTLS(c.tlsConfig)
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(transportCreds)}

	rpcCreds := grpcCredentials{
		username: c.username,
		password: c.password,
		token:    c.token,
		params:   c.params,
		secure:   c.tlsEnabled,
	}
	if !rpcCreds.empty() {
		opts = append(opts, grpc.WithPerRPCCredentials(rpcCreds))
	}

	return append(opts, d.options...)
}

// Connect dials the server and checks that it answers and accepts the
// credentials before returning.
func (d *Driver) Connect(ctx context.Context, cfg sqlsession.Config) (sqlsession.Session, error) {
	c, err := parseConfig(cfg)
	if err != nil {
		return nil, err
	}

	if _, set := ctx.Deadline(); !set && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	client, err := flightsql.NewClientCtx(ctx, c.addr, nil, nil, d.dialOptions(c)...)
	if err != nil {
		return nil, translate(err, sqlsession.CodeConnection)
	}
	client.Alloc = d.alloc

	// gRPC connects lazily; one cheap call surfaces unreachable servers and
	// rejected credentials now.
	_, err = client.GetSqlInfo(ctx, []flightsql.SqlInfo{flightsql.SqlInfoFlightSqlServerName})
	if !reachable(err) {
		_ = client.Close()
		return nil, translate(err, sqlsession.CodeConnection)
	}

	return &session{client: client, alloc: d.alloc}, nil
}
