package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/AdGenMCM/Updated-AdGen/internal/domain/models"
	"github.com/AdGenMCM/Updated-AdGen/internal/domain/repositories"
)

type usageRepository struct {
	db *sqlx.DB
}

func NewUsageRepository(db *sqlx.DB) repositories.UsageRepository {
	return &usageRepository{db: db}
}

// CheckAndIncrement runs the whole read-modify-write inside one
// transaction. The no-op ON CONFLICT upsert both creates the row on
// first use and takes the row lock, so two concurrent calls for the
// same account serialize on the database regardless of which process
// they run in.
func (r *usageRepository) CheckAndIncrement(ctx context.Context, accountID int64, periodStart int64, periodEnd *int64, cap int) (*models.UsageResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin usage transaction: %w", err)
	}
	defer tx.Rollback()

	var stored struct {
		PeriodStart int64 `db:"period_start"`
		Used        int   `db:"used"`
	}
	lockQuery := `
		INSERT INTO usage_counters (account_id, period_start, period_end, used)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (account_id) DO UPDATE SET account_id = usage_counters.account_id
		RETURNING period_start, used`

	if err := tx.GetContext(ctx, &stored, lockQuery, accountID, periodStart, periodEnd); err != nil {
		return nil, fmt.Errorf("failed to lock usage counter: %w", err)
	}

	used := stored.Used
	if stored.PeriodStart != periodStart {
		// Billing cycle rolled over; the old period's count is done.
		used = 0
	}

	allowed := used < cap
	if allowed {
		used++
	}

	updateQuery := `
		UPDATE usage_counters
		SET period_start = $2, period_end = $3, used = $4, updated_at = CURRENT_TIMESTAMP
		WHERE account_id = $1`

	if _, err := tx.ExecContext(ctx, updateQuery, accountID, periodStart, periodEnd, used); err != nil {
		return nil, fmt.Errorf("failed to write usage counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit usage transaction: %w", err)
	}

	return &models.UsageResult{
		Allowed:     allowed,
		Used:        used,
		Cap:         cap,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}, nil
}

func (r *usageRepository) Get(ctx context.Context, accountID int64) (*models.UsageCounter, error) {
	var counter models.UsageCounter
	query := `
		SELECT account_id, period_start, period_end, used, updated_at
		FROM usage_counters
		WHERE account_id = $1`

	err := r.db.GetContext(ctx, &counter, query, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get usage counter: %w", err)
	}

	return &counter, nil
}
