package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/inventory-report-api/internal/dto"
	"github.com/noah-isme/inventory-report-api/internal/models"
	"github.com/noah-isme/inventory-report-api/internal/repository"
)

func TestReportCacheDisabledIsCold(t *testing.T) {
	var nilCache *ReportCache
	_, hit, release := nilCache.Claim(context.Background(), "k")
	assert.False(t, hit)
	release()
	nilCache.Store(context.Background(), "k", &dto.ReportResult{})
	assert.NoError(t, nilCache.Purge(context.Background(), ""))

	repo := &memoryCacheRepo{}
	disabled := NewReportCache(repo, nil, time.Minute, zap.NewNop(), false)
	disabled.Store(context.Background(), "k", &dto.ReportResult{Type: models.ReportTypeOrder})
	_, hit = disabled.Lookup(context.Background(), "k")
	assert.False(t, hit)
	assert.Empty(t, repo.entries)
}

func TestReportCacheClaimRechecksAfterLock(t *testing.T) {
	repo := &memoryCacheRepo{}
	rc := NewReportCache(repo, NewMetricsService(), time.Minute, zap.NewNop(), true)
	filled := &dto.ReportResult{Type: models.ReportTypeSupplier, Supplier: []dto.SupplierReportRow{{SupplierID: 7}}}
	// another replica stores the report while this one waits for the lock
	repo.onLocked = func() { _ = repo.Set(context.Background(), "reports:supplier", filled, time.Minute) }

	cached, hit, release := rc.Claim(context.Background(), "reports:supplier")
	release()
	require.True(t, hit)
	assert.Equal(t, int64(7), cached.Supplier[0].SupplierID)
	assert.Equal(t, 1, repo.locks)
}

func TestReportCacheClaimComputesWhenLockBusy(t *testing.T) {
	repo := &memoryCacheRepo{lockErr: repository.ErrLockNotObtained}
	rc := NewReportCache(repo, nil, time.Minute, zap.NewNop(), true)

	_, hit, release := rc.Claim(context.Background(), "reports:order")
	require.NotNil(t, release)
	release()
	assert.False(t, hit)
}

func TestReportCachePurgePatterns(t *testing.T) {
	repo := &memoryCacheRepo{}
	rc := NewReportCache(repo, nil, time.Minute, zap.NewNop(), true)

	require.NoError(t, rc.Purge(context.Background(), models.ReportTypeInventory))
	require.NoError(t, rc.Purge(context.Background(), ""))
	assert.Equal(t, []string{"reports:inventory:*", "reports:*"}, repo.purged)
}
