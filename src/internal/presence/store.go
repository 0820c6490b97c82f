package presence

import (
	"context"
	"time"
)

// Store is the key-value backend of the tracker.
// A missing key must be reported as models.ErrKeyNotFound.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	SetAdd(ctx context.Context, key string, members ...string) error
	SetRemove(ctx context.Context, key string, members ...string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
}

const (
	OnlineSetKey = "online_users"
	OnlineValue  = "ONLINE"

	markerPrefix  = "user:"
	markerSuffix  = ":online"
	lastActiveFmt = "user:%s:lastActive"
)

func OnlineKey(userID string) string {
	return markerPrefix + userID + markerSuffix
}
