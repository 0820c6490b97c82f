package loginsession

import (
	"context"
	"errors"
	"fmt"
	"presence-svc/src/clients"
	"presence-svc/src/internal/metrics"
	"presence-svc/src/internal/models"
	"presence-svc/src/internal/token"
	"presence-svc/src/internal/user"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const DefaultTTL = 30 * time.Minute

type Session struct {
	SessionID    string    `json:"sessionId"`
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	LastActiveAt time.Time `json:"lastActiveAt"`
	ClientIP     string    `json:"clientIp"`
}

type LoginResult struct {
	Session        *Session
	AccessToken    string
	TokenExpiresAt time.Time
}

// Presence is the part of the tracker driven by login sessions
type Presence interface {
	Login(ctx context.Context, userID string) (int64, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, userID string) (int64, error)
}

type Service struct {
	store     *store
	users     user.Repository
	presence  Presence
	tokens    *token.Manager
	publisher clients.EventPublisher
	ttl       time.Duration
	now       func() time.Time
}

func NewService(kv KV, users user.Repository, presence Presence, tokens *token.Manager, publisher clients.EventPublisher, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if publisher == nil {
		publisher = clients.NopPublisher{}
	}
	return &Service{
		store:     newStore(kv),
		users:     users,
		presence:  presence,
		tokens:    tokens,
		publisher: publisher,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Login checks credentials, stores a new session and marks the user online
func (s *Service) Login(ctx context.Context, username, password, clientIP string) (*LoginResult, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, models.ErrUserNotFound) {
		logrus.WithField("username", username).Warn("Login attempt for unknown user")
		metrics.ObserveLoginSession("rejected")
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !u.Active || u.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		logrus.WithField("username", username).Warn("Login rejected")
		metrics.ObserveLoginSession("rejected")
		return nil, models.ErrInvalidCredentials
	}

	now := s.now().UTC()
	session := &Session{
		SessionID:    newSessionID(),
		UserID:       u.UserID,
		Username:     u.Username,
		Email:        u.Email,
		Role:         u.Role,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
		LastActiveAt: now,
		ClientIP:     clientIP,
	}

	if err := s.store.save(ctx, session, s.ttl); err != nil {
		return nil, err
	}
	if err := s.store.link(ctx, u.UserID, session.SessionID); err != nil {
		return nil, err
	}

	ttl, err := s.presence.Login(ctx, u.UserID)
	if err != nil {
		return nil, err
	}

	accessToken, tokenExpiresAt, err := s.tokens.Issue(u.UserID, session.SessionID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}

	if err := s.users.SetOnline(ctx, u.UserID, true, &now); err != nil {
		logrus.WithError(err).WithField("user_id", u.UserID).Warn("Failed to update roster online flag")
	}
	s.publish(u.UserID, models.ActionOnline, ttl)
	metrics.ObserveLoginSession("created")

	logrus.WithFields(logrus.Fields{
		"user_id":    u.UserID,
		"session_id": session.SessionID,
		"client_ip":  clientIP,
	}).Info("Login session created")

	return &LoginResult{
		Session:        session,
		AccessToken:    accessToken,
		TokenExpiresAt: tokenExpiresAt,
	}, nil
}

// GetSession returns a live session. Records past their expiry are deleted.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", models.ErrInvalidParams)
	}

	session, err := s.store.load(ctx, sessionID)
	if errors.Is(err, models.ErrSessionInvalid) {
		_, _ = s.store.remove(ctx, sessionID)
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.expired(session) {
		if _, err := s.store.remove(ctx, sessionID); err != nil {
			return nil, err
		}
		if err := s.store.unlink(ctx, session.UserID, sessionID); err != nil {
			return nil, err
		}
		metrics.ObserveLoginSession("expired")
		return nil, models.ErrSessionNotFound
	}

	return session, nil
}

// Logout deletes the session. A missing session is an error.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	session, err := s.store.load(ctx, sessionID)
	if err != nil && !errors.Is(err, models.ErrSessionNotFound) && !errors.Is(err, models.ErrSessionInvalid) {
		return err
	}

	deleted, err := s.store.remove(ctx, sessionID)
	if err != nil {
		return err
	}
	if !deleted {
		return models.ErrSessionNotFound
	}
	metrics.ObserveLoginSession("logout")

	if session == nil {
		return nil
	}

	if err := s.store.unlink(ctx, session.UserID, sessionID); err != nil {
		return err
	}

	remaining, err := s.UserSessions(ctx, session.UserID)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		if err := s.goOffline(ctx, session.UserID); err != nil {
			return err
		}
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    session.UserID,
		"session_id": sessionID,
		"remaining":  len(remaining),
	}).Info("Login session closed")

	return nil
}

// ActiveSessions lists every stored session id
func (s *Service) ActiveSessions(ctx context.Context) ([]string, error) {
	ids, err := s.store.scanIDs(ctx)
	if err != nil {
		return nil, err
	}
	return uniqueSorted(ids), nil
}

// UserSessions lists the live sessions of a user, dropping dead index entries
func (s *Service) UserSessions(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.store.linked(ctx, userID)
	if err != nil {
		return nil, err
	}

	alive := make([]string, 0, len(ids))
	var dead []string
	for _, id := range ids {
		_, err := s.GetSession(ctx, id)
		switch {
		case err == nil:
			alive = append(alive, id)
		case errors.Is(err, models.ErrSessionNotFound):
			dead = append(dead, id)
		default:
			return nil, err
		}
	}

	if len(dead) > 0 {
		if err := s.store.unlink(ctx, userID, dead...); err != nil {
			return nil, err
		}
	}

	sort.Strings(alive)
	return alive, nil
}

// Extend pushes the expiry of a live session back by minutes
func (s *Service) Extend(ctx context.Context, sessionID string, minutes int) (*Session, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("%w: minutes must be positive", models.ErrInvalidParams)
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	session.ExpiresAt = session.ExpiresAt.Add(time.Duration(minutes) * time.Minute)
	remaining := session.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		_, _ = s.store.remove(ctx, sessionID)
		return nil, models.ErrSessionNotFound
	}

	if err := s.store.save(ctx, session, remaining); err != nil {
		return nil, err
	}

	metrics.ObserveLoginSession("extended")
	logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"minutes":    minutes,
		"expires_at": session.ExpiresAt,
	}).Info("Login session extended")

	return session, nil
}

// TerminateAll deletes every live session of the user and marks them offline
func (s *Service) TerminateAll(ctx context.Context, userID string) (int, error) {
	ids, err := s.UserSessions(ctx, userID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, id := range ids {
		deleted, err := s.store.remove(ctx, id)
		if err != nil {
			return count, err
		}
		if deleted {
			count++
		}
	}

	if len(ids) > 0 {
		if err := s.store.unlink(ctx, userID, ids...); err != nil {
			return count, err
		}
	}

	if count > 0 {
		if err := s.goOffline(ctx, userID); err != nil {
			return count, err
		}
		metrics.ObserveLoginSession("terminated")
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"terminated": count,
	}).Info("User sessions terminated")

	return count, nil
}

// Validate reports a live session or ErrSessionInvalid
func (s *Service) Validate(ctx context.Context, sessionID string) (*Session, error) {
	session, err := s.GetSession(ctx, sessionID)
	if errors.Is(err, models.ErrSessionNotFound) || errors.Is(err, models.ErrInvalidParams) {
		return nil, fmt.Errorf("%w: invalid or expired session", models.ErrSessionInvalid)
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Touch slides the session expiry and keeps the user's presence alive
func (s *Service) Touch(ctx context.Context, sessionID string) (*Session, error) {
	session, err := s.Validate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	session.LastActiveAt = now
	if next := now.Add(s.ttl); next.After(session.ExpiresAt) {
		session.ExpiresAt = next
	}

	if err := s.store.save(ctx, session, session.ExpiresAt.Sub(now)); err != nil {
		return nil, err
	}

	if _, err := s.presence.Refresh(ctx, session.UserID); errors.Is(err, models.ErrSessionNotFound) {
		_, err = s.presence.Login(ctx, session.UserID)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	return session, nil
}

func (s *Service) goOffline(ctx context.Context, userID string) error {
	if err := s.presence.Logout(ctx, userID); err != nil {
		return err
	}
	if err := s.users.SetOnline(ctx, userID, false, nil); err != nil && !errors.Is(err, models.ErrUserNotFound) {
		logrus.WithError(err).WithField("user_id", userID).Warn("Failed to update roster online flag")
	}
	s.publish(userID, models.ActionOffline, 0)
	return nil
}

func (s *Service) expired(session *Session) bool {
	return !session.ExpiresAt.IsZero() && session.ExpiresAt.Before(s.now())
}

func (s *Service) publish(userID, action string, ttl int64) {
	event := models.PresenceEvent{
		UserID:      userID,
		Action:      action,
		ServiceName: models.ServiceLoginSession,
		TTLSeconds:  ttl,
		Timestamp:   s.now().UTC(),
	}
	if err := s.publisher.PublishPresence(event); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("Presence event not delivered")
	}
}

func newSessionID() string {
	return "sess_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func uniqueSorted(ids []string) []string {
	sort.Strings(ids)
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if len(out) > 0 && out[len(out)-1] == id {
			continue
		}
		out = append(out, id)
	}
	return out
}
