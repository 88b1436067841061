// Package memory is the in-process session store backend.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/unimind/uniquery/internal/core/domain"
)

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.ConversationSession
	active   string
}

func New() *Store {
	return &Store{sessions: make(map[string]*domain.ConversationSession)}
}

func (s *Store) CreateSession(_ context.Context, session *domain.ConversationSession) error {
	if session == nil || session.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "create session", fmt.Errorf("missing session id"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *session
	clone.Turns = append([]domain.ConversationTurn(nil), session.Turns...)
	s.sessions[session.ID] = &clone
	return nil
}

func (s *Store) SessionExists(_ context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[sessionID]
	return ok, nil
}

func (s *Store) AppendTurn(_ context.Context, sessionID string, turn domain.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "append turn", fmt.Errorf("session %s", sessionID))
	}
	session.Turns = append(session.Turns, turn)
	session.UpdatedAt = turn.CreatedAt
	return nil
}

func (s *Store) RecentTurns(_ context.Context, sessionID string, limit int) ([]domain.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "recent turns", fmt.Errorf("session %s", sessionID))
	}

	turns := session.Turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return append([]domain.ConversationTurn(nil), turns...), nil
}

func (s *Store) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *Store) ActiveSessionID(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active, nil
}

func (s *Store) SetActiveSessionID(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = sessionID
	return nil
}
