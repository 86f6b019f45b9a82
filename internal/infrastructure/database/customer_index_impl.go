package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/AdGenMCM/Updated-AdGen/internal/domain/repositories"
)

type customerIndexRepository struct {
	db *sqlx.DB
}

func NewCustomerIndexRepository(db *sqlx.DB) repositories.CustomerIndexRepository {
	return &customerIndexRepository{db: db}
}

func (r *customerIndexRepository) Resolve(ctx context.Context, customerID string) (int64, error) {
	var accountID int64
	query := `SELECT account_id FROM stripe_customers WHERE customer_id = $1`

	err := r.db.GetContext(ctx, &accountID, query, customerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to resolve stripe customer: %w", err)
	}

	return accountID, nil
}

func (r *customerIndexRepository) Record(ctx context.Context, customerID string, accountID int64) error {
	query := `
		INSERT INTO stripe_customers (customer_id, account_id)
		VALUES ($1, $2)
		ON CONFLICT (customer_id) DO UPDATE SET account_id = EXCLUDED.account_id`

	if _, err := r.db.ExecContext(ctx, query, customerID, accountID); err != nil {
		return fmt.Errorf("failed to record stripe customer: %w", err)
	}

	return nil
}
