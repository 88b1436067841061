// Package redis is the Redis session store backend: session metadata as JSON
// strings, turns as lists, the active-session pointer as a plain key. An
// optional TTL expires idle conversations.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unimind/uniquery/internal/core/domain"
)

const defaultPrefix = "uniquery:"

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func New(opts Options) *Store {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{
		client: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) sessionKey(id string) string { return s.prefix + "session:" + id }
func (s *Store) turnsKey(id string) string   { return s.prefix + "session:" + id + ":turns" }
func (s *Store) activeKey() string           { return s.prefix + "active_session" }

func (s *Store) CreateSession(ctx context.Context, session *domain.ConversationSession) error {
	if session == nil || session.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "create session", fmt.Errorf("missing session id"))
	}

	meta := *session
	meta.Turns = nil
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.sessionKey(session.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *Store) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.sessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return n > 0, nil
}

func (s *Store) AppendTurn(ctx context.Context, sessionID string, turn domain.ConversationTurn) error {
	exists, err := s.SessionExists(ctx, sessionID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.WrapError(domain.ErrNotFound, "append turn", fmt.Errorf("session %s", sessionID))
	}

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, s.turnsKey(sessionID), data)
	if s.ttl > 0 {
		// Keep both keys on the same clock so a session never outlives its turns.
		pipe.Expire(ctx, s.turnsKey(sessionID), s.ttl)
		pipe.Expire(ctx, s.sessionKey(sessionID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (s *Store) RecentTurns(ctx context.Context, sessionID string, limit int) ([]domain.ConversationTurn, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := s.client.LRange(ctx, s.turnsKey(sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}

	out := make([]domain.ConversationTurn, 0, len(raw))
	for _, item := range raw {
		var turn domain.ConversationTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("unmarshal turn: %w", err)
		}
		out = append(out, turn)
	}
	return out, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.sessionKey(sessionID), s.turnsKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Store) ActiveSessionID(ctx context.Context) (string, error) {
	id, err := s.client.Get(ctx, s.activeKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load active session: %w", err)
	}
	return id, nil
}

func (s *Store) SetActiveSessionID(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		if err := s.client.Del(ctx, s.activeKey()).Err(); err != nil {
			return fmt.Errorf("clear active session: %w", err)
		}
		return nil
	}
	if err := s.client.Set(ctx, s.activeKey(), sessionID, 0).Err(); err != nil {
		return fmt.Errorf("store active session: %w", err)
	}
	return nil
}
