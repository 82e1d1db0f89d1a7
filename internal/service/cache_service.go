package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/omenezes/aula-planner-api/internal/models"
)

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService centralizes the dashboard cache keyspace so every writer
// invalidates the same keys the reader populates.
type CacheService struct {
	store  cacheStore
	logger *zap.Logger
}

// NewCacheService constructs the service. A nil store disables caching.
func NewCacheService(store cacheStore, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{store: store, logger: logger}
}

// DashboardKey builds the cache key for one rendered dashboard window.
func (s *CacheService) DashboardKey(userID string, mode models.ViewMode, offset int) string {
	return fmt.Sprintf("dashboard:%s:%s:%d", userID, mode, offset)
}

// Get loads a cached value. Returns pkg/errors.ErrCacheMiss when absent.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	return s.store.Get(ctx, key, dest)
}

// Set stores a value with the given TTL. Failures are logged, not returned,
// because a cold cache only costs a recompute.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if err := s.store.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateDashboard drops every cached window of the given user. Called by
// any write that can change what the dashboard shows.
func (s *CacheService) InvalidateDashboard(ctx context.Context, userID string) {
	pattern := fmt.Sprintf("dashboard:%s:*", userID)
	if err := s.store.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}
