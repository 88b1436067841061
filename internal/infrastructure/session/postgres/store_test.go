package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"

	"github.com/unimind/uniquery/internal/core/domain"
)

func newStoreWithMock(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool() error = %v", err)
	}
	t.Cleanup(mock.Close)
	return &Store{db: mock}, mock
}

func TestAppendTurnUnknownSession(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectExec("UPDATE sessions").
		WithArgs("missing", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.AppendTurn(context.Background(), "missing", domain.ConversationTurn{
		Question:  "q",
		Answer:    "a",
		CreatedAt: time.Now().UTC(),
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAppendTurnInsertsAfterTouch(t *testing.T) {
	store, mock := newStoreWithMock(t)
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE sessions").
		WithArgs("s-1", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO session_turns").
		WithArgs("s-1", "q", "a", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.AppendTurn(context.Background(), "s-1", domain.ConversationTurn{
		Question:  "q",
		Answer:    "a",
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecentTurnsReturnsOldestFirst(t *testing.T) {
	store, mock := newStoreWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("s-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT question, answer, created_at").
		WithArgs("s-1", 2).
		WillReturnRows(pgxmock.NewRows([]string{"question", "answer", "created_at"}).
			AddRow("first", "one", now.Add(-time.Minute)).
			AddRow("second", "two", now))

	turns, err := store.RecentTurns(context.Background(), "s-1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Question != "first" || turns[1].Question != "second" {
		t.Fatalf("unexpected order: %+v", turns)
	}
}

func TestActiveSessionIDEmptyWhenUnset(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectQuery("SELECT session_id FROM active_session").
		WillReturnRows(pgxmock.NewRows([]string{"session_id"}))

	id, err := store.ActiveSessionID(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "" {
		t.Fatalf("expected empty active session, got %q", id)
	}
}

func TestSetActiveSessionIDUpserts(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectExec("INSERT INTO active_session").
		WithArgs("s-9").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := store.SetActiveSessionID(context.Background(), "s-9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
