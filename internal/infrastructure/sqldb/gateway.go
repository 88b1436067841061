package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unimind/uniquery/internal/core/domain"
	"github.com/unimind/uniquery/internal/core/ports"
)

const (
	defaultExecuteMaxRows      = 50
	defaultQueryTimeout        = 30 * time.Second
	defaultSchemaRefreshPeriod = 5 * time.Minute
	introspectTimeout          = 20 * time.Second
)

// ConnectionConfig describes one configured database connection.
type ConnectionConfig struct {
	Name             string
	Dialect          string
	DSN              string
	MaxRows          int
	QueryTimeout     time.Duration
	SensitiveColumns []string
}

type connection struct {
	name      string
	dialect   dialect
	db        *sql.DB
	maxRows   int
	timeout   time.Duration
	sensitive []string
}

// Gateway implements ports.DatabaseGateway over the configured connections.
// Schema snapshots live behind an atomic pointer so query-path reads never
// take a lock; a background goroutine refreshes them on an interval.
// Connections are opened lazily by database/sql, so an unreachable database
// does not block startup and surfaces per query instead.
type Gateway struct {
	names    []string
	conns    map[string]*connection
	interval time.Duration

	mu      sync.Mutex
	schemas atomic.Pointer[map[string]domain.SchemaMetadata]

	stopOnce sync.Once
	stop     chan struct{}
}

func NewGateway(configs []ConnectionConfig) (*Gateway, error) {
	g := &Gateway{
		conns:    make(map[string]*connection, len(configs)),
		interval: defaultSchemaRefreshPeriod,
		stop:     make(chan struct{}),
	}
	empty := map[string]domain.SchemaMetadata{}
	g.schemas.Store(&empty)

	for _, cfg := range configs {
		if cfg.Name == "" {
			return nil, fmt.Errorf("database connection without a name")
		}
		if _, exists := g.conns[cfg.Name]; exists {
			return nil, fmt.Errorf("duplicate database name %q", cfg.Name)
		}

		d, err := dialectFor(cfg.Dialect)
		if err != nil {
			return nil, fmt.Errorf("database %q: %w", cfg.Name, err)
		}

		db, err := sql.Open(d.driverName(), cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database %q: %w", cfg.Name, err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)

		maxRows := cfg.MaxRows
		if maxRows <= 0 {
			maxRows = defaultExecuteMaxRows
		}
		timeout := cfg.QueryTimeout
		if timeout <= 0 {
			timeout = defaultQueryTimeout
		}

		g.conns[cfg.Name] = &connection{
			name:      cfg.Name,
			dialect:   d,
			db:        db,
			maxRows:   maxRows,
			timeout:   timeout,
			sensitive: cfg.SensitiveColumns,
		}
		g.names = append(g.names, cfg.Name)
	}
	return g, nil
}

// SetSchemaRefreshInterval overrides the default five minute refresh period.
// Call before StartSchemaRefresh.
func (g *Gateway) SetSchemaRefreshInterval(interval time.Duration) {
	if interval > 0 {
		g.interval = interval
	}
}

func (g *Gateway) Names() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

func (g *Gateway) Dialect(name string) (ports.SQLDialect, error) {
	conn, err := g.connection(name)
	if err != nil {
		return nil, err
	}
	return conn.dialect, nil
}

// Schema returns the cached snapshot for one database, introspecting on
// demand when the cache has no entry yet.
func (g *Gateway) Schema(ctx context.Context, name string) (domain.SchemaMetadata, error) {
	conn, err := g.connection(name)
	if err != nil {
		return domain.SchemaMetadata{}, err
	}

	if meta, ok := (*g.schemas.Load())[name]; ok {
		return meta, nil
	}

	meta, err := conn.dialect.introspect(ctx, conn.db, name)
	if err != nil {
		return domain.SchemaMetadata{}, domain.WrapError(domain.ErrTemporary, "introspect schema", err)
	}
	meta.FetchedAt = time.Now().UTC()
	g.storeSchema(name, meta)
	return meta, nil
}

// Execute runs one validated statement with the connection's timeout and row
// cap, masking sensitive columns before returning.
func (g *Gateway) Execute(ctx context.Context, name, sqlText string, maxRows int) (domain.DatabaseResult, error) {
	conn, err := g.connection(name)
	if err != nil {
		return domain.DatabaseResult{}, err
	}

	limit := conn.maxRows
	if maxRows > 0 && maxRows < limit {
		limit = maxRows
	}

	queryCtx, cancel := context.WithTimeout(ctx, conn.timeout)
	defer cancel()

	started := time.Now()
	rows, err := conn.db.QueryContext(queryCtx, sqlText)
	if err != nil {
		return domain.DatabaseResult{}, fmt.Errorf("query %s: %w", name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return domain.DatabaseResult{}, fmt.Errorf("read columns: %w", err)
	}

	result := domain.DatabaseResult{
		Database: name,
		SQL:      sqlText,
		Columns:  columns,
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if len(result.Rows) >= limit {
			result.Truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return domain.DatabaseResult{}, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return domain.DatabaseResult{}, fmt.Errorf("read rows: %w", err)
	}

	if masked := sanitizeRows(columns, result.Rows, conn.sensitive); len(masked) > 0 {
		slog.Debug("masked sensitive columns", "database", name, "columns", masked)
	}

	result.RowCount = len(result.Rows)
	result.Duration = time.Since(started)
	return result, nil
}

// StartSchemaRefresh introspects all databases now and then keeps the
// snapshots fresh until ctx is cancelled or Stop is called.
func (g *Gateway) StartSchemaRefresh(ctx context.Context) {
	go func() {
		g.refreshAll(ctx)
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-g.stop:
				return
			case <-ticker.C:
				g.refreshAll(ctx)
			}
		}
	}()
}

func (g *Gateway) Stop() {
	g.stopOnce.Do(func() { close(g.stop) })
}

// Close stops the refresher and closes all database handles.
func (g *Gateway) Close() error {
	g.Stop()
	var firstErr error
	for _, name := range g.names {
		if err := g.conns[name].db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", name, err)
		}
	}
	return firstErr
}

func (g *Gateway) refreshAll(ctx context.Context) {
	next := make(map[string]domain.SchemaMetadata, len(g.names))
	prev := *g.schemas.Load()

	for _, name := range g.names {
		conn := g.conns[name]

		introspectCtx, cancel := context.WithTimeout(ctx, introspectTimeout)
		meta, err := conn.dialect.introspect(introspectCtx, conn.db, name)
		cancel()
		if err != nil {
			slog.Warn("schema refresh failed",
				"database", name,
				"error", err,
			)
			// Keep the stale snapshot rather than dropping schema context.
			if stale, ok := prev[name]; ok {
				next[name] = stale
			}
			continue
		}
		meta.FetchedAt = time.Now().UTC()
		next[name] = meta
	}

	g.mu.Lock()
	g.schemas.Store(&next)
	g.mu.Unlock()
}

func (g *Gateway) storeSchema(name string, meta domain.SchemaMetadata) {
	g.mu.Lock()
	defer g.mu.Unlock()

	prev := *g.schemas.Load()
	next := make(map[string]domain.SchemaMetadata, len(prev)+1)
	for k, v := range prev {
		next[k] = v
	}
	next[name] = meta
	g.schemas.Store(&next)
}

func (g *Gateway) connection(name string) (*connection, error) {
	conn, ok := g.conns[name]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "database lookup", fmt.Errorf("unknown database %q", name))
	}
	return conn, nil
}

func normalizeValue(v any) any {
	if raw, ok := v.([]byte); ok {
		return string(raw)
	}
	return v
}
