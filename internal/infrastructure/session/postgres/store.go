// Package postgres is the Postgres session store backend. Schema lives in
// embedded migrations; writes rely on database-level atomicity, so concurrent
// requests for the same session never need in-process locking.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unimind/uniquery/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// querier is the subset of pgxpool.Pool the store uses; tests substitute a
// pgxmock pool.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db   querier
	pool *pgxpool.Pool
}

// New connects a pool, applies the embedded migrations, and returns the
// store. Migration failure is a configuration error and fails startup.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse session store dsn: %w", err)
	}
	cfg.MaxConns = 10

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create session store pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping session store: %w", err)
	}

	if err := runMigrations(dsn, migrationsFS); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{db: pool, pool: pool}, nil
}

func runMigrations(dsn string, migrations fs.FS) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run session store migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) CreateSession(ctx context.Context, session *domain.ConversationSession) error {
	if session == nil || session.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "create session", fmt.Errorf("missing session id"))
	}

	_, err := s.db.Exec(ctx, `
INSERT INTO sessions (id, created_at, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (id) DO NOTHING
`, session.ID, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, sessionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return exists, nil
}

func (s *Store) AppendTurn(ctx context.Context, sessionID string, turn domain.ConversationTurn) error {
	tag, err := s.db.Exec(ctx, `
UPDATE sessions SET updated_at = $2 WHERE id = $1
`, sessionID, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.WrapError(domain.ErrNotFound, "append turn", fmt.Errorf("session %s", sessionID))
	}

	_, err = s.db.Exec(ctx, `
INSERT INTO session_turns (session_id, question, answer, created_at) VALUES ($1, $2, $3, $4)
`, sessionID, turn.Question, turn.Answer, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

func (s *Store) RecentTurns(ctx context.Context, sessionID string, limit int) ([]domain.ConversationTurn, error) {
	exists, err := s.SessionExists(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.WrapError(domain.ErrNotFound, "recent turns", fmt.Errorf("session %s", sessionID))
	}

	query := `
SELECT question, answer, created_at FROM (
	SELECT id, question, answer, created_at
	FROM session_turns
	WHERE session_id = $1
	ORDER BY id DESC
	LIMIT $2
) recent ORDER BY id ASC
`
	effective := limit
	if effective <= 0 {
		effective = 1000
	}
	rows, err := s.db.Query(ctx, query, sessionID, effective)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []domain.ConversationTurn
	for rows.Next() {
		var turn domain.ConversationTurn
		var created time.Time
		if err := rows.Scan(&turn.Question, &turn.Answer, &created); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turn.CreatedAt = created
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read turns: %w", err)
	}
	return turns, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Store) ActiveSessionID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRow(ctx, `SELECT session_id FROM active_session WHERE singleton = TRUE`).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("read active session: %w", err)
	}
	return id, nil
}

func (s *Store) SetActiveSessionID(ctx context.Context, sessionID string) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO active_session (singleton, session_id) VALUES (TRUE, $1)
ON CONFLICT (singleton) DO UPDATE SET session_id = EXCLUDED.session_id
`, sessionID)
	if err != nil {
		return fmt.Errorf("set active session: %w", err)
	}
	return nil
}
