package sqlsession

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Connection is an open session with one database endpoint. It creates
// Statements and owns them: Close closes every live Statement and Cursor.
//
// A Connection is meant to be used from one goroutine at a time; Close may
// be called from any goroutine.
type Connection struct {
	id        string
	cfg       Config
	session   Session
	opts      Options
	log       *slog.Logger
	namespace string // Cache key prefix.

	cache    Storage          // nil when caching is disabled.
	inMemory *InMemoryStorage // Owned default cache, stopped on Close.

	mu     sync.Mutex
	stmts  map[*Statement]struct{}
	closed bool
}

// Open parses url, connects through drv and returns the Connection. user and
// password, when not empty, take precedence over credentials in the URL.
// Every failure is reported as ErrConnection.
func Open(ctx context.Context, drv Driver, url, user, password string, opts ...Options) (*Connection, error) {
	if drv == nil {
		return nil, NewError(CodeConnection, "no driver")
	}

	cfg, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	if user != "" {
		cfg.User = user
	}
	if password != "" {
		cfg.Password = password
	}

	opt := defaultOptions(opts...)
	id := uuid.NewString()
	log := opt.Logger.With(
		slog.String("conn_id", id),
		slog.String("scheme", cfg.Scheme),
		slog.String("host", cfg.Host),
	)

	cctx, cancel := withDefaultTimeout(ctx, opt.ConnectTimeout)
	defer cancel()

	session, err := drv.Connect(cctx, cfg)
	if err != nil {
		log.Debug("connect failed", slog.Any("error", err))
		return nil, connectError(err, cfg)
	}

	c := &Connection{
		id:        id,
		cfg:       cfg,
		session:   session,
		opts:      opt,
		log:       log,
		namespace: cfg.namespace(),
		stmts:     make(map[*Statement]struct{}),
	}

	if opt.CacheEnabled {
		if opt.Cache != nil {
			c.cache = opt.Cache
		} else {
			c.inMemory = NewInMemoryStorage(opt.CacheSize, opt.CacheTTLCheck)
			c.cache = c.inMemory
		}
	}

	log.Debug("connection opened", slog.String("user", cfg.User))
	return c, nil
}

func connectError(err error, cfg Config) error {
	if e, ok := err.(*Error); ok && e.Code == CodeConnection {
		return e
	}
	return &Error{Code: CodeConnection, Message: "connect to " + cfg.URL(), Err: err}
}

// withDefaultTimeout bounds ctx by d unless ctx already has a deadline or d is zero.
func withDefaultTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (c *Connection) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withDefaultTimeout(ctx, c.opts.QueryTimeout)
}

// ID returns the random identifier attached to this connection's log records.
func (c *Connection) ID() string { return c.id }

// Config returns the parsed endpoint configuration.
func (c *Connection) Config() Config { return c.cfg }

// Prepare creates a prepared statement. Placeholders are positional "?".
// When the session supports server side preparation the statement is
// compiled now and, if the server reports parameter types, Bind checks them.
func (c *Connection) Prepare(ctx context.Context, sql string) (*Statement, error) {
	if c.isClosed() {
		return nil, useAfterClose("connection")
	}
	if isBlank(sql) {
		return nil, NewError(CodeInvalidStatement, "empty statement")
	}

	stmt := newStatement(c, sql, countPlaceholders(sql))
	stmt.prepared = true

	if p, ok := c.session.(Preparer); ok {
		qctx, cancel := c.queryContext(ctx)
		defer cancel()

		handle, err := p.Prepare(qctx, sql)
		if err != nil {
			c.log.Debug("prepare failed", slog.String("sql", sql), slog.Any("error", err))
			return nil, WrapError(CodeExecution, err, "prepare statement")
		}
		stmt.handle = handle
		if types := handle.ParameterTypes(); types != nil {
			stmt.numInput = len(types)
			stmt.params = make([]Value, len(types))
			stmt.bound = make([]bool, len(types))
			stmt.paramTypes = types
		}
	}

	if err := c.register(stmt); err != nil {
		_ = stmt.Close()
		return nil, err
	}
	c.log.Debug("prepare", slog.String("sql", sql), slog.Int("params", stmt.numInput))
	return stmt, nil
}

// PrepareCall prepares "CALL procedure(?, ...)" with numArgs placeholders.
// An unqualified procedure is qualified with the "schema" URL option when set.
func (c *Connection) PrepareCall(ctx context.Context, procedure string, numArgs int) (*Statement, error) {
	if procedure == "" || numArgs < 0 {
		return nil, NewError(CodeInvalidStatement, "invalid procedure call %q with %d arguments", procedure, numArgs)
	}
	schema, _ := c.cfg.Param("schema")
	return c.Prepare(ctx, generateCall(schema, procedure, numArgs))
}

// Execute runs sql as a plain statement without parameters. The statement is
// owned by the returned Cursor and closed with it.
func (c *Connection) Execute(ctx context.Context, sql string) (*Cursor, error) {
	if c.isClosed() {
		return nil, useAfterClose("connection")
	}
	if isBlank(sql) {
		return nil, NewError(CodeInvalidStatement, "empty statement")
	}

	stmt := newStatement(c, sql, countPlaceholders(sql))
	stmt.owned = true
	if err := c.register(stmt); err != nil {
		return nil, err
	}

	cur, err := stmt.ExecuteQuery(ctx)
	if err != nil {
		_ = stmt.Close()
		return nil, err
	}
	return cur, nil
}

func (c *Connection) register(stmt *Statement) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return useAfterClose("connection")
	}
	c.stmts[stmt] = struct{}{}
	return nil
}

func (c *Connection) forget(stmt *Statement) {
	c.mu.Lock()
	delete(c.stmts, stmt)
	c.mu.Unlock()
}

func (c *Connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close closes every live statement and cursor, then ends the session. The
// first failure is returned after everything has been released. Calling
// Close again is a no-op.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	stmts := make([]*Statement, 0, len(c.stmts))
	for s := range c.stmts {
		stmts = append(stmts, s)
	}
	c.mu.Unlock()

	var err error
	for _, s := range stmts {
		if serr := s.Close(); serr != nil {
			c.log.Warn("close statement", slog.String("sql", s.sql), slog.Any("error", serr))
			if err == nil {
				err = serr
			}
		}
	}

	if serr := c.session.Close(); serr != nil {
		c.log.Warn("close session", slog.Any("error", serr))
		if err == nil {
			err = WrapError(CodeConnection, serr, "close session")
		}
	}

	if c.inMemory != nil {
		_ = c.inMemory.Close()
	}

	c.log.Debug("connection closed", slog.Int("statements", len(stmts)))
	return err
}

func useAfterClose(what string) error {
	return NewError(CodeUseAfterClose, "%s is closed", what)
}
