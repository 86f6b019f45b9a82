package repositories

import (
	"context"

	"github.com/AdGenMCM/Updated-AdGen/internal/domain/models"
)

type UsageRepository interface {
	// CheckAndIncrement atomically applies the check-and-increment
	// algorithm for one account: reset the counter if periodStart
	// differs from the stored key, deny when used >= cap, otherwise
	// increment. The implementation must serialize concurrent calls for
	// the same account across server processes, not just goroutines.
	CheckAndIncrement(ctx context.Context, accountID int64, periodStart int64, periodEnd *int64, cap int) (*models.UsageResult, error)

	// Get returns (nil, nil) when the account has no counter yet.
	Get(ctx context.Context, accountID int64) (*models.UsageCounter, error)
}
