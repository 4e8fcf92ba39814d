package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/alumni-mentorship-api/internal/models"
	appErrors "github.com/noah-isme/alumni-mentorship-api/pkg/errors"
)

const suggestionKeyPrefix = "mentorship:suggestions:"

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService wraps the cache repository with metrics and a kill switch, and
// owns the key layout of cached mentor suggestions. A nil *CacheService
// behaves as a disabled cache.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	duration := time.Since(start)
	s.metrics.RecordCacheOperation(err == nil, duration)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// Suggestions returns the cached ranking for a mentee request.
func (s *CacheService) Suggestions(ctx context.Context, requestID string) ([]models.MentorMatch, bool) {
	var matches []models.MentorMatch
	hit, err := s.Get(ctx, suggestionKey(requestID), &matches)
	if err != nil || !hit {
		return nil, false
	}
	return matches, true
}

// StoreSuggestions caches a ranking with the default TTL. Failures only cost
// a recomputation and are logged by Set.
func (s *CacheService) StoreSuggestions(ctx context.Context, requestID string, matches []models.MentorMatch) {
	_ = s.Set(ctx, suggestionKey(requestID), matches, 0)
}

// DropSuggestions forgets the ranking of a single request.
func (s *CacheService) DropSuggestions(ctx context.Context, requestID string) {
	_ = s.Invalidate(ctx, suggestionKey(requestID))
}

// InvalidateSuggestions drops every cached suggestion list. Mentor capacity
// and profile changes alter rankings for all requests.
func (s *CacheService) InvalidateSuggestions(ctx context.Context) {
	_ = s.Invalidate(ctx, suggestionKeyPrefix+"*")
}

func suggestionKey(requestID string) string {
	return suggestionKeyPrefix + requestID
}
