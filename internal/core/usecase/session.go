package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unimind/uniquery/internal/core/domain"
	"github.com/unimind/uniquery/internal/core/ports"
)

const defaultHistoryMaxTurns = 10

// SessionUseCase manages conversation sessions over a pluggable store. The
// store keeps the active-session pointer, so callers never manage session
// state themselves.
type SessionUseCase struct {
	store    ports.SessionStore
	maxTurns int
}

func NewSessionUseCase(store ports.SessionStore, maxTurns int) *SessionUseCase {
	if maxTurns <= 0 {
		maxTurns = defaultHistoryMaxTurns
	}
	return &SessionUseCase{
		store:    store,
		maxTurns: maxTurns,
	}
}

// StartNewConversation creates a fresh session and makes it active.
func (uc *SessionUseCase) StartNewConversation(ctx context.Context) (string, error) {
	now := time.Now().UTC()
	session := &domain.ConversationSession{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.store.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	if err := uc.store.SetActiveSessionID(ctx, session.ID); err != nil {
		return "", fmt.Errorf("activate session: %w", err)
	}
	return session.ID, nil
}

// GetOrCreateSession returns the active session id, creating one when none
// exists or the active pointer is stale.
func (uc *SessionUseCase) GetOrCreateSession(ctx context.Context) (string, error) {
	id, err := uc.store.ActiveSessionID(ctx)
	if err != nil {
		return "", fmt.Errorf("load active session: %w", err)
	}
	if id != "" {
		exists, err := uc.store.SessionExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check session: %w", err)
		}
		if exists {
			return id, nil
		}
	}
	return uc.StartNewConversation(ctx)
}

// AddTurn appends one question/answer exchange to the session.
func (uc *SessionUseCase) AddTurn(ctx context.Context, sessionID, question, answer string) error {
	if strings.TrimSpace(sessionID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "add turn", fmt.Errorf("session id is empty"))
	}
	turn := domain.ConversationTurn{
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.store.AppendTurn(ctx, sessionID, turn); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// GetHistory returns the session transcript, already truncated to the
// configured window and formatted for prompt embedding.
func (uc *SessionUseCase) GetHistory(ctx context.Context, sessionID string) (string, error) {
	exists, err := uc.store.SessionExists(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("check session: %w", err)
	}
	if !exists {
		return "", domain.WrapError(domain.ErrNotFound, "get history", fmt.Errorf("session %s", sessionID))
	}

	turns, err := uc.store.RecentTurns(ctx, sessionID, uc.maxTurns)
	if err != nil {
		return "", fmt.Errorf("load turns: %w", err)
	}
	return FormatTranscript(uc.Truncate(turns, uc.maxTurns)), nil
}

// ResetSession deletes the session's history and clears the active pointer
// when it pointed at the deleted session.
func (uc *SessionUseCase) ResetSession(ctx context.Context, sessionID string) error {
	if err := uc.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	active, err := uc.store.ActiveSessionID(ctx)
	if err != nil {
		return fmt.Errorf("load active session: %w", err)
	}
	if active == sessionID {
		if err := uc.store.SetActiveSessionID(ctx, ""); err != nil {
			return fmt.Errorf("clear active session: %w", err)
		}
	}
	return nil
}

// ResetActiveSession clears the currently active conversation, if any.
func (uc *SessionUseCase) ResetActiveSession(ctx context.Context) error {
	id, err := uc.store.ActiveSessionID(ctx)
	if err != nil {
		return fmt.Errorf("load active session: %w", err)
	}
	if id == "" {
		return nil
	}
	return uc.ResetSession(ctx, id)
}

// Truncate bounds a transcript to the most recent maxTurns exchanges before
// it is embedded into prompts, keeping context growth bounded.
func (uc *SessionUseCase) Truncate(turns []domain.ConversationTurn, maxTurns int) []domain.ConversationTurn {
	if maxTurns <= 0 || len(turns) == 0 {
		return nil
	}
	if len(turns) <= maxTurns {
		return turns
	}
	return turns[len(turns)-maxTurns:]
}

// FormatTranscript renders turns in the User/Assistant form embedded into
// prompts and returned by GetHistory.
func FormatTranscript(turns []domain.ConversationTurn) string {
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	for _, turn := range turns {
		b.WriteString("User: ")
		b.WriteString(turn.Question)
		b.WriteString("\nAssistant: ")
		b.WriteString(turn.Answer)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
