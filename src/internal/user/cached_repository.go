package user

import (
	"context"
	"presence-svc/src/internal/config"
	"presence-svc/src/internal/metrics"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/sirupsen/logrus"
)

const userCost = 1

// CachedRepository is a read-through ristretto cache in front of a Repository.
// Lookups by id are cached, every write invalidates.
type CachedRepository struct {
	Repository
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewCachedRepository(next Repository, cfg *config.CacheConfig) (*CachedRepository, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	return &CachedRepository{
		Repository: next,
		cache:      cache,
		ttl:        time.Duration(cfg.TTLSeconds) * time.Second,
	}, nil
}

func (r *CachedRepository) FindByID(ctx context.Context, userID string) (*User, error) {
	if value, found := r.cache.Get(userID); found {
		if u, ok := value.(User); ok {
			logrus.WithField("user_id", userID).Debug("User served from cache")
			return &u, nil
		}
		r.cache.Del(userID)
	}

	u, err := r.Repository.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	r.cache.SetWithTTL(userID, *u, userCost, r.ttl)
	r.cache.Wait()
	r.observe()

	return u, nil
}

func (r *CachedRepository) Save(ctx context.Context, user *User) error {
	defer r.invalidate(user.UserID)
	return r.Repository.Save(ctx, user)
}

func (r *CachedRepository) SetOnline(ctx context.Context, userID string, online bool, lastLogin *time.Time) error {
	defer r.invalidate(userID)
	return r.Repository.SetOnline(ctx, userID, online, lastLogin)
}

func (r *CachedRepository) Delete(ctx context.Context, userID string) error {
	defer r.invalidate(userID)
	return r.Repository.Delete(ctx, userID)
}

func (r *CachedRepository) DeleteAll(ctx context.Context) error {
	defer func() {
		r.cache.Clear()
		r.observe()
	}()
	return r.Repository.DeleteAll(ctx)
}

// Close stops the cache goroutines
func (r *CachedRepository) Close() {
	r.cache.Close()
}

func (r *CachedRepository) invalidate(userID string) {
	r.cache.Del(userID)
	r.cache.Wait()
	r.observe()
}

func (r *CachedRepository) observe() {
	m := r.cache.Metrics
	if m == nil {
		return
	}
	metrics.SetCacheItems(int(m.KeysAdded() - m.KeysEvicted()))
}
