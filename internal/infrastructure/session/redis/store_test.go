package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/unimind/uniquery/internal/core/domain"
)

func newStoreWithMini(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	store := New(Options{Addr: mr.Addr(), TTL: ttl})
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func testSession(id string) *domain.ConversationSession {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	return &domain.ConversationSession{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testTurn(question, answer string) domain.ConversationTurn {
	return domain.ConversationTurn{
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Date(2025, 3, 10, 12, 1, 0, 0, time.UTC),
	}
}

func TestSessionLifecycle(t *testing.T) {
	store, _ := newStoreWithMini(t, 0)
	ctx := context.Background()

	if err := store.CreateSession(ctx, testSession("sess-1")); err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}

	exists, err := store.SessionExists(ctx, "sess-1")
	if err != nil {
		t.Fatalf("expected exists check to succeed, got %v", err)
	}
	if !exists {
		t.Fatalf("expected session to exist after create")
	}

	if err := store.AppendTurn(ctx, "sess-1", testTurn("q1", "a1")); err != nil {
		t.Fatalf("expected append to succeed, got %v", err)
	}
	if err := store.AppendTurn(ctx, "sess-1", testTurn("q2", "a2")); err != nil {
		t.Fatalf("expected append to succeed, got %v", err)
	}

	turns, err := store.RecentTurns(ctx, "sess-1", 0)
	if err != nil {
		t.Fatalf("expected recent turns to succeed, got %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Question != "q1" || turns[1].Question != "q2" {
		t.Fatalf("expected chronological order, got %q then %q", turns[0].Question, turns[1].Question)
	}

	if err := store.DeleteSession(ctx, "sess-1"); err != nil {
		t.Fatalf("expected delete to succeed, got %v", err)
	}
	exists, err = store.SessionExists(ctx, "sess-1")
	if err != nil {
		t.Fatalf("expected exists check to succeed, got %v", err)
	}
	if exists {
		t.Fatalf("expected session to be gone after delete")
	}
}

func TestRecentTurnsWindow(t *testing.T) {
	store, _ := newStoreWithMini(t, 0)
	ctx := context.Background()

	if err := store.CreateSession(ctx, testSession("sess-2")); err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}
	for _, q := range []string{"q1", "q2", "q3", "q4"} {
		if err := store.AppendTurn(ctx, "sess-2", testTurn(q, "a")); err != nil {
			t.Fatalf("expected append to succeed, got %v", err)
		}
	}

	turns, err := store.RecentTurns(ctx, "sess-2", 2)
	if err != nil {
		t.Fatalf("expected recent turns to succeed, got %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Question != "q3" || turns[1].Question != "q4" {
		t.Fatalf("expected the last two turns in order, got %q then %q", turns[0].Question, turns[1].Question)
	}
}

func TestAppendTurnMissingSession(t *testing.T) {
	store, _ := newStoreWithMini(t, 0)

	err := store.AppendTurn(context.Background(), "ghost", testTurn("q", "a"))
	if err == nil {
		t.Fatalf("expected error for missing session")
	}
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestActiveSessionPointer(t *testing.T) {
	store, _ := newStoreWithMini(t, 0)
	ctx := context.Background()

	id, err := store.ActiveSessionID(ctx)
	if err != nil {
		t.Fatalf("expected active lookup to succeed, got %v", err)
	}
	if id != "" {
		t.Fatalf("expected no active session initially, got %q", id)
	}

	if err := store.SetActiveSessionID(ctx, "sess-9"); err != nil {
		t.Fatalf("expected set active to succeed, got %v", err)
	}
	id, err = store.ActiveSessionID(ctx)
	if err != nil {
		t.Fatalf("expected active lookup to succeed, got %v", err)
	}
	if id != "sess-9" {
		t.Fatalf("expected active session sess-9, got %q", id)
	}

	if err := store.SetActiveSessionID(ctx, ""); err != nil {
		t.Fatalf("expected clearing active to succeed, got %v", err)
	}
	id, err = store.ActiveSessionID(ctx)
	if err != nil {
		t.Fatalf("expected active lookup to succeed, got %v", err)
	}
	if id != "" {
		t.Fatalf("expected active session cleared, got %q", id)
	}
}

func TestTTLExpiresSessions(t *testing.T) {
	store, mr := newStoreWithMini(t, time.Minute)
	ctx := context.Background()

	if err := store.CreateSession(ctx, testSession("sess-ttl")); err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}
	if err := store.AppendTurn(ctx, "sess-ttl", testTurn("q", "a")); err != nil {
		t.Fatalf("expected append to succeed, got %v", err)
	}

	mr.FastForward(2 * time.Minute)

	exists, err := store.SessionExists(ctx, "sess-ttl")
	if err != nil {
		t.Fatalf("expected exists check to succeed, got %v", err)
	}
	if exists {
		t.Fatalf("expected session to expire after ttl")
	}
	turns, err := store.RecentTurns(ctx, "sess-ttl", 0)
	if err != nil {
		t.Fatalf("expected recent turns to succeed, got %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected no turns after expiry, got %d", len(turns))
	}
}
