package repositories

import (
	"context"

	"github.com/AdGenMCM/Updated-AdGen/internal/domain/models"
)

type EntitlementRepository interface {
	// Get returns (nil, nil) when the account has no entitlement yet;
	// absence is the normal trial state, not an error.
	Get(ctx context.Context, accountID int64) (*models.Entitlement, error)

	// Merge upserts the entitlement, overwriting only the fields the
	// patch actually carries. Safe to replay: merging the same patch
	// twice leaves the record unchanged.
	Merge(ctx context.Context, accountID int64, patch *models.EntitlementPatch) error
}
