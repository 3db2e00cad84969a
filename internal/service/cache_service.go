package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/inventory-report-api/internal/dto"
	"github.com/noah-isme/inventory-report-api/internal/models"
	"github.com/noah-isme/inventory-report-api/internal/repository"
	"github.com/noah-isme/inventory-report-api/pkg/cache"
	appErrors "github.com/noah-isme/inventory-report-api/pkg/errors"
)

const (
	reportCacheNamespace = "reports"
	defaultReportTTL     = 5 * time.Minute
	fillLockTTL          = 30 * time.Second
	fillLockWait         = 2 * time.Second
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Lock(ctx context.Context, key string, ttl, wait time.Duration) (func(), error)
}

// ReportCache stores computed reports and coordinates fills across replicas.
// A nil or disabled cache misses every lookup and stores nothing.
type ReportCache struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewReportCache constructs a report cache.
func NewReportCache(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *ReportCache {
	if ttl <= 0 {
		ttl = defaultReportTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportCache{repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (c *ReportCache) Enabled() bool {
	return c != nil && c.enabled && c.repo != nil
}

// Lookup returns the cached report for key. Backend errors read as a miss.
func (c *ReportCache) Lookup(ctx context.Context, key string) (*dto.ReportResult, bool) {
	return c.get(ctx, key, true)
}

// Claim looks key up and, on a miss, takes the fill lock so only one replica
// computes the report. The caller must invoke release once it has stored the
// result. When the lock is busy past the wait window the caller computes anyway.
func (c *ReportCache) Claim(ctx context.Context, key string) (*dto.ReportResult, bool, func()) {
	noop := func() {}
	if !c.Enabled() {
		return nil, false, noop
	}
	if cached, hit := c.get(ctx, key, true); hit {
		return cached, true, noop
	}

	release, err := c.repo.Lock(ctx, key+":lock", fillLockTTL, fillLockWait)
	if err != nil {
		if !errors.Is(err, repository.ErrLockNotObtained) {
			c.logger.Warn("report cache lock failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false, noop
	}
	// the previous holder has usually stored the report by now
	if cached, hit := c.get(ctx, key, false); hit {
		release()
		return cached, true, noop
	}
	return nil, false, release
}

// Store caches result under key for the configured TTL.
func (c *ReportCache) Store(ctx context.Context, key string, result *dto.ReportResult) {
	if !c.Enabled() || result == nil {
		return
	}
	start := time.Now()
	err := c.repo.Set(ctx, key, result, c.ttl)
	c.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		c.logger.Warn("report cache store failed", zap.String("key", key), zap.Error(err))
	}
}

// Purge drops cached reports of reportType, or every cached report when reportType is empty.
func (c *ReportCache) Purge(ctx context.Context, reportType models.ReportType) error {
	if !c.Enabled() {
		return nil
	}
	pattern := cache.Key(reportCacheNamespace, string(reportType), "*")
	if err := c.repo.DeleteByPattern(ctx, pattern); err != nil {
		c.logger.Warn("report cache purge failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

func (c *ReportCache) get(ctx context.Context, key string, record bool) (*dto.ReportResult, bool) {
	if !c.Enabled() {
		return nil, false
	}
	start := time.Now()
	var cached dto.ReportResult
	err := c.repo.Get(ctx, key, &cached)
	if record {
		c.metrics.RecordCacheOperation(err == nil, time.Since(start))
	}
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("report cache lookup failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return &cached, true
}
