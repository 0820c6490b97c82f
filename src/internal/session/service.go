package session

import (
	"context"
	"presence-svc/src/clients"
	"presence-svc/src/internal/models"
	"presence-svc/src/internal/user"
	"time"

	"github.com/sirupsen/logrus"
)

// Tracker is the presence tracker as seen by the session views
type Tracker interface {
	Login(ctx context.Context, userID string) (int64, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, userID string) (int64, error)
	IsOnline(ctx context.Context, userID string) (bool, error)
	LastActiveTime(ctx context.Context, userID string) (*time.Time, error)
	OnlineUsers(ctx context.Context) ([]string, error)
	Forget(ctx context.Context, userID string) error
}

// Terminator ends every login session of a user
type Terminator interface {
	TerminateAll(ctx context.Context, userID string) (int, error)
}

type Service interface {
	GetAllUsers(ctx context.Context) ([]*user.Profile, error)
	GetOnlineUsers(ctx context.Context) ([]*user.Profile, error)
	GetOfflineUsers(ctx context.Context) ([]*user.Profile, error)
	GetSessionStats(ctx context.Context) (*models.SessionStats, error)
	SetUserOnline(ctx context.Context, userID string) (*Response, error)
	SetUserOffline(ctx context.Context, userID string) (*Response, error)
	RefreshUserTTL(ctx context.Context, userID string) (*Response, error)
	RemoveUser(ctx context.Context, userID string) (*Response, error)
	GetUserStatus(ctx context.Context, userID string) (*StatusResponse, error)
}

type Response struct {
	Message    string `json:"message"`
	UserID     string `json:"userId"`
	Username   string `json:"username,omitempty"`
	Status     string `json:"status"`
	TTLSeconds int64  `json:"ttlSeconds,omitempty"`
}

type StatusResponse struct {
	UserID       string     `json:"userId"`
	Online       bool       `json:"online"`
	LastActiveAt *time.Time `json:"lastActiveAt,omitempty"`
}

type sessionService struct {
	tracker    Tracker
	users      user.Repository
	publisher  clients.EventPublisher
	terminator Terminator
	now        func() time.Time
}

func NewSessionService(tracker Tracker, users user.Repository, publisher clients.EventPublisher, terminator Terminator) Service {
	if publisher == nil {
		publisher = clients.NopPublisher{}
	}
	return &sessionService{
		tracker:    tracker,
		users:      users,
		publisher:  publisher,
		terminator: terminator,
		now:        time.Now,
	}
}

func (s *sessionService) GetAllUsers(ctx context.Context) ([]*user.Profile, error) {
	users, online, err := s.rosterWithPresence(ctx)
	if err != nil {
		return nil, err
	}

	profiles := make([]*user.Profile, len(users))
	for i, u := range users {
		_, alive := online[u.UserID]
		profiles[i] = u.ToProfile(alive)
	}
	return profiles, nil
}

func (s *sessionService) GetOnlineUsers(ctx context.Context) ([]*user.Profile, error) {
	return s.filter(ctx, true)
}

func (s *sessionService) GetOfflineUsers(ctx context.Context) ([]*user.Profile, error) {
	return s.filter(ctx, false)
}

func (s *sessionService) filter(ctx context.Context, wantOnline bool) ([]*user.Profile, error) {
	users, online, err := s.rosterWithPresence(ctx)
	if err != nil {
		return nil, err
	}

	profiles := make([]*user.Profile, 0, len(users))
	for _, u := range users {
		if _, alive := online[u.UserID]; alive == wantOnline {
			profiles = append(profiles, u.ToProfile(alive))
		}
	}
	return profiles, nil
}

// GetSessionStats counts only roster users as online, so online never exceeds total
func (s *sessionService) GetSessionStats(ctx context.Context) (*models.SessionStats, error) {
	users, online, err := s.rosterWithPresence(ctx)
	if err != nil {
		return nil, err
	}

	var onlineCount int64
	for _, u := range users {
		if _, alive := online[u.UserID]; alive {
			onlineCount++
		}
	}

	stats := models.NewSessionStats(int64(len(users)), onlineCount)

	logrus.WithFields(logrus.Fields{
		"total":      stats.TotalUsers,
		"online":     stats.OnlineUsers,
		"offline":    stats.OfflineUsers,
		"percentage": stats.OnlinePercentage,
	}).Debug("Session statistics computed")

	return stats, nil
}

func (s *sessionService) SetUserOnline(ctx context.Context, userID string) (*Response, error) {
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ttl, err := s.tracker.Login(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	s.project(ctx, userID, true, &now)
	s.publish(userID, models.ActionOnline, ttl)

	return &Response{
		Message:    "User set to online successfully",
		UserID:     userID,
		Username:   u.Username,
		Status:     "online",
		TTLSeconds: ttl,
	}, nil
}

func (s *sessionService) SetUserOffline(ctx context.Context, userID string) (*Response, error) {
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.tracker.Logout(ctx, userID); err != nil {
		return nil, err
	}

	s.project(ctx, userID, false, nil)
	s.publish(userID, models.ActionOffline, 0)

	return &Response{
		Message:  "User set to offline successfully",
		UserID:   userID,
		Username: u.Username,
		Status:   "offline",
	}, nil
}

func (s *sessionService) RefreshUserTTL(ctx context.Context, userID string) (*Response, error) {
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ttl, err := s.tracker.Refresh(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.publish(userID, models.ActionRefreshed, ttl)

	return &Response{
		Message:    "User session TTL refreshed successfully",
		UserID:     userID,
		Username:   u.Username,
		Status:     "refreshed",
		TTLSeconds: ttl,
	}, nil
}

func (s *sessionService) RemoveUser(ctx context.Context, userID string) (*Response, error) {
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.terminator != nil {
		terminated, err := s.terminator.TerminateAll(ctx, userID)
		if err != nil {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{
			"user_id":    userID,
			"terminated": terminated,
		}).Debug("Login sessions terminated for removed user")
	}

	if err := s.tracker.Forget(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return nil, err
	}

	s.publish(userID, models.ActionRemoved, 0)

	logrus.WithField("user_id", userID).Info("User removed")

	return &Response{
		Message:  "User removed successfully",
		UserID:   userID,
		Username: u.Username,
		Status:   "removed",
	}, nil
}

func (s *sessionService) GetUserStatus(ctx context.Context, userID string) (*StatusResponse, error) {
	online, err := s.tracker.IsOnline(ctx, userID)
	if err != nil {
		return nil, err
	}

	lastActive, err := s.tracker.LastActiveTime(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &StatusResponse{
		UserID:       userID,
		Online:       online,
		LastActiveAt: lastActive,
	}, nil
}

func (s *sessionService) getUser(ctx context.Context, userID string) (*user.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Debug("User lookup failed")
		return nil, err
	}
	return u, nil
}

func (s *sessionService) rosterWithPresence(ctx context.Context) ([]*user.User, map[string]struct{}, error) {
	ids, err := s.tracker.OnlineUsers(ctx)
	if err != nil {
		return nil, nil, err
	}

	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	online := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		online[id] = struct{}{}
	}
	return users, online, nil
}

// project writes the cached is_online flag. The marker stays authoritative,
// so a failed write is logged and not returned.
func (s *sessionService) project(ctx context.Context, userID string, online bool, lastLogin *time.Time) {
	if err := s.users.SetOnline(ctx, userID, online, lastLogin); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("Failed to update roster online flag")
	}
}

func (s *sessionService) publish(userID, action string, ttl int64) {
	event := models.PresenceEvent{
		UserID:      userID,
		Action:      action,
		ServiceName: models.ServiceSessionManagement,
		TTLSeconds:  ttl,
		Timestamp:   s.now().UTC(),
	}
	if err := s.publisher.PublishPresence(event); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("Presence event not delivered")
	}
}
