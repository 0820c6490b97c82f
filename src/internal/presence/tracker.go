package presence

import (
	"context"
	"errors"
	"fmt"
	"presence-svc/src/internal/metrics"
	"presence-svc/src/internal/models"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultOnlineTTL = 300 * time.Second

// Tracker keeps a sliding TTL window of presence per user. All state lives in the store.
type Tracker struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

type Option func(*Tracker)

// WithClock overrides the clock used for last-active timestamps
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

func NewTracker(store Store, ttl time.Duration, opts ...Option) *Tracker {
	if ttl <= 0 {
		ttl = DefaultOnlineTTL
	}
	t := &Tracker{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) TTL() time.Duration {
	return t.ttl
}

func (t *Tracker) ttlSeconds() int64 {
	return int64(t.ttl / time.Second)
}

// Login marks the user online. Calling it again resets the TTL.
func (t *Tracker) Login(ctx context.Context, userID string) (int64, error) {
	if err := validateID(userID); err != nil {
		return 0, err
	}

	if err := t.store.SetWithTTL(ctx, OnlineKey(userID), OnlineValue, t.ttl); err != nil {
		return 0, unavailable(err)
	}
	if err := t.store.SetAdd(ctx, OnlineSetKey, userID); err != nil {
		return 0, unavailable(err)
	}
	if err := t.touch(ctx, userID); err != nil {
		return 0, err
	}

	metrics.ObservePresence(models.ActionOnline)
	logrus.WithFields(logrus.Fields{
		"user_id":     userID,
		"ttl_seconds": t.ttlSeconds(),
	}).Info("User marked online")

	return t.ttlSeconds(), nil
}

// Logout marks the user offline and records the activity time.
// Logging out a user without a marker succeeds.
func (t *Tracker) Logout(ctx context.Context, userID string) error {
	if err := validateID(userID); err != nil {
		return err
	}

	deleted, err := t.store.Delete(ctx, OnlineKey(userID))
	if err != nil {
		return unavailable(err)
	}
	if err := t.store.SetRemove(ctx, OnlineSetKey, userID); err != nil {
		return unavailable(err)
	}

	if err := t.touch(ctx, userID); err != nil {
		return err
	}

	if deleted == 0 {
		logrus.WithField("user_id", userID).Debug("Logout for user without active presence")
		return nil
	}

	metrics.ObservePresence(models.ActionOffline)
	logrus.WithField("user_id", userID).Info("User marked offline")
	return nil
}

// Refresh resets the TTL of an existing marker and returns the remaining seconds.
// Returns models.ErrSessionNotFound when the user is not online.
func (t *Tracker) Refresh(ctx context.Context, userID string) (int64, error) {
	if err := validateID(userID); err != nil {
		return 0, err
	}

	existed, err := t.store.Expire(ctx, OnlineKey(userID), t.ttl)
	if err != nil {
		return 0, unavailable(err)
	}
	if !existed {
		logrus.WithField("user_id", userID).Debug("Refresh for user without active presence")
		return 0, models.ErrSessionNotFound
	}

	remaining, err := t.store.TTL(ctx, OnlineKey(userID))
	if errors.Is(err, models.ErrKeyNotFound) {
		return 0, models.ErrSessionNotFound
	}
	if err != nil {
		return 0, unavailable(err)
	}

	// repairs membership lost between marker write and SADD
	if err := t.store.SetAdd(ctx, OnlineSetKey, userID); err != nil {
		return 0, unavailable(err)
	}
	if err := t.touch(ctx, userID); err != nil {
		return 0, err
	}

	seconds := int64(remaining / time.Second)
	if seconds <= 0 || seconds > t.ttlSeconds() {
		seconds = t.ttlSeconds()
	}

	metrics.ObservePresence(models.ActionRefreshed)
	logrus.WithFields(logrus.Fields{
		"user_id":     userID,
		"ttl_seconds": seconds,
	}).Debug("User presence refreshed")

	return seconds, nil
}

func (t *Tracker) IsOnline(ctx context.Context, userID string) (bool, error) {
	if err := validateID(userID); err != nil {
		return false, err
	}

	online, err := t.store.Exists(ctx, OnlineKey(userID))
	if err != nil {
		return false, unavailable(err)
	}
	return online, nil
}

// LastActiveTime returns nil when the user has never been seen
func (t *Tracker) LastActiveTime(ctx context.Context, userID string) (*time.Time, error) {
	if err := validateID(userID); err != nil {
		return nil, err
	}

	raw, err := t.store.Get(ctx, lastActiveKey(userID))
	if errors.Is(err, models.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(err)
	}

	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"value":   raw,
		}).Warn("Unparseable last active timestamp")
		return nil, nil
	}
	return &ts, nil
}

// OnlineUsers returns the sorted IDs of users whose marker is alive.
// Members whose marker expired are removed from the set on the way.
func (t *Tracker) OnlineUsers(ctx context.Context) ([]string, error) {
	members, err := t.store.SetMembers(ctx, OnlineSetKey)
	if err != nil {
		return nil, unavailable(err)
	}

	online := make([]string, 0, len(members))
	var stale []string

	for _, id := range members {
		alive, err := t.store.Exists(ctx, OnlineKey(id))
		if err != nil {
			return nil, unavailable(err)
		}
		if alive {
			online = append(online, id)
		} else {
			stale = append(stale, id)
		}
	}

	if len(stale) > 0 {
		if err := t.store.SetRemove(ctx, OnlineSetKey, stale...); err != nil {
			return nil, unavailable(err)
		}
		logrus.WithFields(logrus.Fields{
			"removed": len(stale),
			"users":   stale,
		}).Debug("Removed stale online set members")
	}

	sort.Strings(online)
	metrics.ObserveReconciliation(len(online), len(stale))

	return online, nil
}

// ScanOnlineUsers derives online IDs from marker key names.
// Cost grows with the total key count, so it is meant for debugging only.
func (t *Tracker) ScanOnlineUsers(ctx context.Context) ([]string, error) {
	keys, err := t.store.Scan(ctx, markerPrefix+"*"+markerSuffix)
	if err != nil {
		return nil, unavailable(err)
	}

	seen := make(map[string]struct{}, len(keys))
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		id := strings.TrimSuffix(strings.TrimPrefix(key, markerPrefix), markerSuffix)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	sort.Strings(ids)
	return ids, nil
}

// Forget deletes every presence record of the user
func (t *Tracker) Forget(ctx context.Context, userID string) error {
	if err := validateID(userID); err != nil {
		return err
	}

	if _, err := t.store.Delete(ctx, OnlineKey(userID), lastActiveKey(userID)); err != nil {
		return unavailable(err)
	}
	if err := t.store.SetRemove(ctx, OnlineSetKey, userID); err != nil {
		return unavailable(err)
	}

	metrics.ObservePresence(models.ActionRemoved)
	logrus.WithField("user_id", userID).Info("User presence removed")
	return nil
}

// Reset drops the online set and every marker. Last-active records are kept.
func (t *Tracker) Reset(ctx context.Context) error {
	keys, err := t.store.Scan(ctx, markerPrefix+"*"+markerSuffix)
	if err != nil {
		return unavailable(err)
	}

	keys = append(keys, OnlineSetKey)
	deleted, err := t.store.Delete(ctx, keys...)
	if err != nil {
		return unavailable(err)
	}

	logrus.WithField("deleted", deleted).Info("Presence state reset")
	return nil
}

func (t *Tracker) touch(ctx context.Context, userID string) error {
	stamp := t.now().UTC().Format(time.RFC3339Nano)
	if err := t.store.Set(ctx, lastActiveKey(userID), stamp); err != nil {
		return unavailable(err)
	}
	return nil
}

func lastActiveKey(userID string) string {
	return fmt.Sprintf(lastActiveFmt, userID)
}

func validateID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", models.ErrInvalidParams)
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
}
