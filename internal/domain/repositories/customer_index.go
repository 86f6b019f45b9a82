package repositories

import (
	"context"
)

// CustomerIndexRepository stores the reverse mapping from Stripe
// customer id to account id. Webhook events only carry the customer id,
// so this index is how billing events are attributed to accounts.
type CustomerIndexRepository interface {
	// Resolve returns (0, nil) when the customer id is unknown.
	Resolve(ctx context.Context, customerID string) (int64, error)

	// Record is an idempotent upsert.
	Record(ctx context.Context, customerID string, accountID int64) error
}
