package kv

import (
	"context"
	"errors"
	"fmt"
	"presence-svc/src/internal/models"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	MaxKeyLength   = 1000
	MaxValueLength = 10000
	MaxTTLSeconds  = 31536000
)

// Store is the raw key-value surface of the Redis client
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Service exposes plain string keys with input limits. Missing keys yield models.ErrKeyNotFound.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Set(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" || strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: key and value cannot be empty", models.ErrInvalidParams)
	}
	if len([]rune(key)) > MaxKeyLength || len([]rune(value)) > MaxValueLength {
		return fmt.Errorf("%w: key or value too long", models.ErrInvalidParams)
	}

	if err := s.store.Set(ctx, key, value); err != nil {
		return unavailable(err)
	}

	logrus.WithField("key", key).Debug("Key set")
	return nil
}

func (s *Service) Get(ctx context.Context, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	value, err := s.store.Get(ctx, key)
	if errors.Is(err, models.ErrKeyNotFound) {
		return "", err
	}
	if err != nil {
		return "", unavailable(err)
	}
	return value, nil
}

func (s *Service) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	deleted, err := s.store.Delete(ctx, key)
	if err != nil {
		return unavailable(err)
	}
	if deleted == 0 {
		return models.ErrKeyNotFound
	}

	logrus.WithField("key", key).Debug("Key deleted")
	return nil
}

// Keys walks the whole keyspace with SCAN. Debug use only.
func (s *Service) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.store.Scan(ctx, "*")
	if err != nil {
		return nil, unavailable(err)
	}

	seen := make(map[string]struct{}, len(keys))
	unique := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, k)
	}
	sort.Strings(unique)
	return unique, nil
}

func (s *Service) Expire(ctx context.Context, key string, seconds int64) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if seconds <= 0 || seconds > MaxTTLSeconds {
		return fmt.Errorf("%w: TTL must be between 1 and %d seconds", models.ErrInvalidParams, MaxTTLSeconds)
	}

	ok, err := s.store.Expire(ctx, key, time.Duration(seconds)*time.Second)
	if err != nil {
		return unavailable(err)
	}
	if !ok {
		return models.ErrKeyNotFound
	}

	logrus.WithFields(logrus.Fields{"key": key, "ttl_seconds": seconds}).Debug("Key TTL set")
	return nil
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: key cannot be empty", models.ErrInvalidParams)
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
}
