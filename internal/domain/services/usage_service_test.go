package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdGenMCM/Updated-AdGen/internal/domain/models"
)

func newTestUsageService(t *testing.T) (UsageService, *fakeUsageRepo, *fakeEntitlementRepo) {
	t.Helper()
	usageRepo := newFakeUsageRepo()
	entRepo := newFakeEntitlementRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewUsageService(usageRepo, entRepo, logger), usageRepo, entRepo
}

func activeEntitlement(tier models.Tier, cycleStart, cycleEnd int64) *models.EntitlementPatch {
	status := models.StatusActive
	return &models.EntitlementPatch{
		Tier:       &tier,
		Status:     &status,
		CycleStart: &cycleStart,
		CycleEnd:   &cycleEnd,
	}
}

func TestEnforceStopsAtCap(t *testing.T) {
	svc, _, entRepo := newTestUsageService(t)
	ctx := context.Background()

	require.NoError(t, entRepo.Merge(ctx, 1, activeEntitlement(models.TierStarter, 1700000000, 1702592000)))

	for i := 1; i <= 25; i++ {
		result, err := svc.Enforce(ctx, 1, models.RoleUser)
		require.NoError(t, err, "call %d should be allowed", i)
		assert.Equal(t, i, result.Used)
		assert.Equal(t, 25, result.Cap)
	}

	_, err := svc.Enforce(ctx, 1, models.RoleUser)
	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, 25, quotaErr.Result.Used)
	assert.Equal(t, 25, quotaErr.Result.Cap)
	assert.False(t, quotaErr.Result.Allowed)
}

func TestEnforceTrialFallback(t *testing.T) {
	svc, _, _ := newTestUsageService(t)
	ctx := context.Background()

	// No entitlement at all: trial cap in the trial bucket.
	first, err := svc.Enforce(ctx, 7, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Used)
	assert.Equal(t, 5, first.Cap)
	assert.Equal(t, models.TrialPeriodKey, first.PeriodStart)

	second, err := svc.Enforce(ctx, 7, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Used)
}

func TestEnforceInactiveRestrictsToTrialCap(t *testing.T) {
	svc, _, entRepo := newTestUsageService(t)
	ctx := context.Background()

	tier := models.TierPro
	inactive := models.StatusInactive
	require.NoError(t, entRepo.Merge(ctx, 2, &models.EntitlementPatch{Tier: &tier, Status: &inactive}))

	result, err := svc.Enforce(ctx, 2, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Cap)
	assert.Equal(t, models.TrialPeriodKey, result.PeriodStart)
}

func TestCycleRolloverResetsUsage(t *testing.T) {
	svc, usageRepo, entRepo := newTestUsageService(t)
	ctx := context.Background()

	require.NoError(t, entRepo.Merge(ctx, 3, activeEntitlement(models.TierPro, 1700000000, 1702592000)))

	for i := 0; i < 60; i++ {
		_, err := svc.Enforce(ctx, 3, models.RoleUser)
		require.NoError(t, err)
	}
	_, err := svc.Enforce(ctx, 3, models.RoleUser)
	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)

	// New billing cycle arrives via webhook.
	require.NoError(t, entRepo.Merge(ctx, 3, activeEntitlement(models.TierPro, 1702592000, 1705270400)))

	result, err := svc.Enforce(ctx, 3, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Used)
	assert.Equal(t, int64(1702592000), result.PeriodStart)

	counter, err := usageRepo.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1702592000), counter.PeriodStart)
}

func TestPeekDoesNotMutate(t *testing.T) {
	svc, _, entRepo := newTestUsageService(t)
	ctx := context.Background()

	require.NoError(t, entRepo.Merge(ctx, 4, activeEntitlement(models.TierStarter, 1700000000, 1702592000)))

	for i := 0; i < 3; i++ {
		_, err := svc.Enforce(ctx, 4, models.RoleUser)
		require.NoError(t, err)
	}

	for i := 0; i < 5; i++ {
		result, err := svc.Peek(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Used)
		assert.Equal(t, 22, result.Remaining())
	}
}

func TestConcurrentEnforceNeverOversells(t *testing.T) {
	svc, _, entRepo := newTestUsageService(t)
	ctx := context.Background()

	require.NoError(t, entRepo.Merge(ctx, 5, activeEntitlement(models.TierTrial, 1700000000, 1702592000)))

	// Burn all but one slot.
	for i := 0; i < 4; i++ {
		_, err := svc.Enforce(ctx, 5, models.RoleUser)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Enforce(ctx, 5, models.RoleUser)
		}(i)
	}
	wg.Wait()

	var allowed, denied int
	for _, err := range results {
		var quotaErr *QuotaExceededError
		switch {
		case err == nil:
			allowed++
		case errors.As(err, &quotaErr):
			denied++
			assert.Equal(t, 5, quotaErr.Result.Used)
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, allowed, "exactly one caller gets the last slot")
	assert.Equal(t, 1, denied)
}

func TestAdminIsNotMetered(t *testing.T) {
	svc, usageRepo, _ := newTestUsageService(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		result, err := svc.Enforce(ctx, 6, models.RoleAdmin)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	counter, err := usageRepo.Get(ctx, 6)
	require.NoError(t, err)
	assert.Nil(t, counter, "admin calls must not create or bump a counter")
}
