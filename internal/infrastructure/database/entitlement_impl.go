package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/AdGenMCM/Updated-AdGen/internal/domain/models"
	"github.com/AdGenMCM/Updated-AdGen/internal/domain/repositories"
)

type entitlementRepository struct {
	db *sqlx.DB
}

func NewEntitlementRepository(db *sqlx.DB) repositories.EntitlementRepository {
	return &entitlementRepository{db: db}
}

func (r *entitlementRepository) Get(ctx context.Context, accountID int64) (*models.Entitlement, error) {
	var ent models.Entitlement
	query := `
		SELECT account_id, tier, status, cycle_start, cycle_end,
		       stripe_customer_id, stripe_subscription_id, stripe_price_id,
		       requested_tier, created_at, updated_at
		FROM entitlements
		WHERE account_id = $1`

	err := r.db.GetContext(ctx, &ent, query, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get entitlement: %w", err)
	}

	return &ent, nil
}

// Merge applies a partial-field update. COALESCE keeps the stored value
// wherever the patch carries NULL, so an event that only knows the
// status can never erase a previously recorded tier or cycle.
func (r *entitlementRepository) Merge(ctx context.Context, accountID int64, patch *models.EntitlementPatch) error {
	query := `
		INSERT INTO entitlements (account_id, tier, status, cycle_start, cycle_end,
		                          stripe_customer_id, stripe_subscription_id,
		                          stripe_price_id, requested_tier)
		VALUES ($1, $2, COALESCE($3, 'pending'), $4, $5, $6, $7, $8, $9)
		ON CONFLICT (account_id) DO UPDATE SET
			tier                   = COALESCE(EXCLUDED.tier, entitlements.tier),
			status                 = COALESCE($3, entitlements.status),
			cycle_start            = COALESCE(EXCLUDED.cycle_start, entitlements.cycle_start),
			cycle_end              = COALESCE(EXCLUDED.cycle_end, entitlements.cycle_end),
			stripe_customer_id     = COALESCE(EXCLUDED.stripe_customer_id, entitlements.stripe_customer_id),
			stripe_subscription_id = COALESCE(EXCLUDED.stripe_subscription_id, entitlements.stripe_subscription_id),
			stripe_price_id        = COALESCE(EXCLUDED.stripe_price_id, entitlements.stripe_price_id),
			requested_tier         = COALESCE(EXCLUDED.requested_tier, entitlements.requested_tier),
			updated_at             = CURRENT_TIMESTAMP`

	_, err := r.db.ExecContext(ctx, query,
		accountID,
		patch.Tier,
		patch.Status,
		patch.CycleStart,
		patch.CycleEnd,
		patch.StripeCustomerID,
		patch.StripeSubscriptionID,
		patch.StripePriceID,
		patch.RequestedTier,
	)
	if err != nil {
		return fmt.Errorf("failed to merge entitlement: %w", err)
	}

	return nil
}
