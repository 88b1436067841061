package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/unimind/uniquery/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createSession(t *testing.T, store *Store, id string) {
	t.Helper()
	now := time.Now().UTC()
	err := store.CreateSession(context.Background(), &domain.ConversationSession{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
}

func TestAppendAndRecentTurns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	createSession(t, store, "s-1")

	for i, q := range []string{"first", "second", "third"} {
		err := store.AppendTurn(ctx, "s-1", domain.ConversationTurn{
			Question:  q,
			Answer:    "a",
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("append %q: %v", q, err)
		}
	}

	turns, err := store.RecentTurns(ctx, "s-1", 2)
	if err != nil {
		t.Fatalf("recent turns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Question != "second" || turns[1].Question != "third" {
		t.Fatalf("expected most recent turns oldest-first, got %+v", turns)
	}
}

func TestAppendTurnUnknownSession(t *testing.T) {
	store := newTestStore(t)

	err := store.AppendTurn(context.Background(), "missing", domain.ConversationTurn{
		Question:  "q",
		Answer:    "a",
		CreatedAt: time.Now().UTC(),
	})
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSessionRemovesTurns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	createSession(t, store, "s-2")

	err := store.AppendTurn(ctx, "s-2", domain.ConversationTurn{
		Question:  "q",
		Answer:    "a",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := store.DeleteSession(ctx, "s-2"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	exists, err := store.SessionExists(ctx, "s-2")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatalf("expected session deleted")
	}
	if _, err := store.RecentTurns(ctx, "s-2", 5); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for deleted session, got %v", err)
	}
}

func TestActiveSessionPointer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.ActiveSessionID(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if id != "" {
		t.Fatalf("expected no active session, got %q", id)
	}

	if err := store.SetActiveSessionID(ctx, "s-a"); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if err := store.SetActiveSessionID(ctx, "s-b"); err != nil {
		t.Fatalf("replace active: %v", err)
	}

	id, err = store.ActiveSessionID(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if id != "s-b" {
		t.Fatalf("expected s-b active, got %q", id)
	}
}
