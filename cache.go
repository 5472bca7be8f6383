package sqlsession

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// cachedResult is the encoded form of a fully read result.
type cachedResult struct {
	Columns []Column
	Rows    [][]Value
}

// memoryRows replays a materialized result.
type memoryRows struct {
	cols []Column
	rows [][]Value
	pos  int
}

func (m *memoryRows) Columns() []Column { return m.cols }

func (m *memoryRows) Next(dest []Value) error {
	if m.pos >= len(m.rows) {
		return io.EOF
	}
	copy(dest, m.rows[m.pos])
	m.pos++
	return nil
}

func (m *memoryRows) Close() error {
	m.rows = nil
	return nil
}

// materialize drains and closes rows.
func materialize(rows RowStream) (cachedResult, error) {
	defer rows.Close()

	res := cachedResult{Columns: rows.Columns()}
	for {
		row := make([]Value, len(res.Columns))
		if err := rows.Next(row); err != nil {
			if errors.Is(err, io.EOF) {
				return res, nil
			}
			return cachedResult{}, WrapError(CodeExecution, err, "read result")
		}
		res.Rows = append(res.Rows, row)
	}
}

// check returns the cached result stored under key, or nil.
func (c *Connection) check(key string) *memoryRows {
	data, err := c.cache.Get(key)
	if err != nil {
		return nil
	}

	var res cachedResult
	if err := c.opts.Codec.Unmarshal(data, &res); err != nil {
		c.log.Warn("drop undecodable cache entry", slog.String("key", key), slog.Any("error", err))
		_ = c.cache.Delete(key)
		return nil
	}
	return &memoryRows{cols: res.Columns, rows: res.Rows}
}

// runCached serves a statement execution from the result cache, filling the
// entry on a miss. Only one goroutine per key fills the cache; the others
// wait and read what it stored. Cache failures are logged, never returned.
func (s *Statement) runCached(ctx context.Context, params []Value) (RowStream, error) {
	c := s.conn
	key := CreateKey(c.namespace, s.sql, params...)

	if rows := c.check(key); rows != nil {
		c.log.Debug("cache hit", slog.String("key", key))
		return rows, nil
	}

	mutexKey := "mutex_" + key
	if err := c.opts.Mutex.Lock(mutexKey); err != nil {
		c.log.Warn("cache lock failed", slog.String("key", key), slog.Any("error", err))
		return s.exec(ctx, params)
	}
	defer func() {
		if err := c.opts.Mutex.Unlock(mutexKey); err != nil {
			c.log.Warn("cache unlock failed", slog.String("key", key), slog.Any("error", err))
		}
	}()

	if rows := c.check(key); rows != nil {
		c.log.Debug("cache hit after wait", slog.String("key", key))
		return rows, nil
	}

	rows, err := s.exec(ctx, params)
	if err != nil {
		return nil, err
	}
	res, err := materialize(rows)
	if err != nil {
		return nil, err
	}

	if data, err := c.opts.Codec.Marshal(res); err != nil {
		c.log.Warn("cache encode failed", slog.String("key", key), slog.Any("error", err))
	} else if err := c.cache.Set(key, data, s.cacheTTL); err != nil {
		c.log.Warn("cache store failed", slog.String("key", key), slog.Any("error", err))
	}

	return &memoryRows{cols: res.Columns, rows: res.Rows}, nil
}
