package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/in-c0/langtern/internal/cache"
)

const (
	keyLanguages  = "catalog:languages"
	keySkills     = "catalog:skills"
	keyJobsPrefix = "catalog:jobs:"
)

// CachedStore caches job listings and reference data in front of another
// Store. Profiles always go to the underlying store.
type CachedStore struct {
	next   Store
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	jobKeys map[string]struct{}
}

func NewCachedStore(next Store, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedStore{
		next:    next,
		cache:   c,
		ttl:     ttl,
		logger:  logger,
		jobKeys: make(map[string]struct{}),
	}
}

func (s *CachedStore) GetProfile(ctx context.Context, id string) (*UserProfile, error) {
	return s.next.GetProfile(ctx, id)
}

func (s *CachedStore) ListJobs(ctx context.Context, filter JobFilter) ([]JobListing, error) {
	key := keyJobsPrefix + filter.key()
	s.mu.Lock()
	s.jobKeys[key] = struct{}{}
	s.mu.Unlock()

	return cached(ctx, s, key, func(ctx context.Context) ([]JobListing, error) {
		return s.next.ListJobs(ctx, filter)
	})
}

func (s *CachedStore) ReferenceLanguages(ctx context.Context) ([]Language, error) {
	return cached(ctx, s, keyLanguages, s.next.ReferenceLanguages)
}

func (s *CachedStore) ReferenceSkills(ctx context.Context) ([]Skill, error) {
	return cached(ctx, s, keySkills, s.next.ReferenceSkills)
}

// Invalidate drops every cached snapshot this store has written.
func (s *CachedStore) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	keys := []string{keyLanguages, keySkills, keyJobsPrefix + OpenJobs.key()}
	for key := range s.jobKeys {
		keys = append(keys, key)
	}
	s.mu.Unlock()

	if err := s.cache.Delete(ctx, keys...); err != nil {
		return err
	}
	s.logger.Info("catalog cache invalidated", zap.Int("keys", len(keys)))
	return nil
}

// Warm re-reads open jobs and reference data into the cache.
func (s *CachedStore) Warm(ctx context.Context) error {
	if _, err := s.ListJobs(ctx, OpenJobs); err != nil {
		return err
	}
	if _, err := s.ReferenceLanguages(ctx); err != nil {
		return err
	}
	_, err := s.ReferenceSkills(ctx)
	return err
}

func cached[T any](ctx context.Context, s *CachedStore, key string, load func(context.Context) (T, error)) (T, error) {
	var value T

	data, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &value); err == nil {
			return value, nil
		}
		s.logger.Warn("dropping undecodable cache entry", zap.String("key", key))
	case !errors.Is(err, cache.ErrNotFound):
		s.logger.Warn("cache read failed, reading through", zap.String("key", key), zap.Error(err))
	}

	value, err = load(ctx)
	if err != nil {
		return value, err
	}

	if data, err := json.Marshal(value); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return value, nil
}
