package loginsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"presence-svc/src/internal/models"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	sessionPrefix      = "session:"
	userSessionsPrefix = "user_sessions:"
)

// KV is the subset of the redis client the session store needs
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) (int64, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	SetAdd(ctx context.Context, key string, members ...string) error
	SetRemove(ctx context.Context, key string, members ...string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
}

// store persists session records as JSON with a TTL and keeps a per-user index
type store struct {
	kv KV
}

func newStore(kv KV) *store {
	return &store{kv: kv}
}

func sessionKey(sessionID string) string {
	return sessionPrefix + sessionID
}

func userSessionsKey(userID string) string {
	return userSessionsPrefix + userID
}

func (s *store) save(ctx context.Context, session *Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		logrus.WithError(err).WithField("session_id", session.SessionID).Error("Failed to marshal session")
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := s.kv.SetWithTTL(ctx, sessionKey(session.SessionID), string(data), ttl); err != nil {
		logrus.WithError(err).WithField("session_id", session.SessionID).Error("Failed to store session")
		return unavailable(err)
	}
	return nil
}

func (s *store) load(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.kv.Get(ctx, sessionKey(sessionID))
	if errors.Is(err, models.ErrKeyNotFound) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Warn("Corrupted session record")
		return nil, models.ErrSessionInvalid
	}
	return &session, nil
}

func (s *store) remove(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.kv.Delete(ctx, sessionKey(sessionID))
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

func (s *store) link(ctx context.Context, userID, sessionID string) error {
	if err := s.kv.SetAdd(ctx, userSessionsKey(userID), sessionID); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *store) unlink(ctx context.Context, userID string, sessionIDs ...string) error {
	if err := s.kv.SetRemove(ctx, userSessionsKey(userID), sessionIDs...); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *store) linked(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.kv.SetMembers(ctx, userSessionsKey(userID))
	if err != nil {
		return nil, unavailable(err)
	}
	return ids, nil
}

func (s *store) scanIDs(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Scan(ctx, sessionPrefix+"*")
	if err != nil {
		return nil, unavailable(err)
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, sessionPrefix))
	}
	return ids, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
}
