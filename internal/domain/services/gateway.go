package services

import (
	"context"
)

// SubscriptionState is the slice of a Stripe subscription this service
// cares about. Status carries Stripe's raw status string; derivation
// into an entitlement status happens in the billing service.
type SubscriptionState struct {
	ID          string
	CustomerID  string
	Status      string
	PriceID     string
	PeriodStart int64
	PeriodEnd   int64
}

// CheckoutState is a retrieved checkout session. Subscription is nil
// while Stripe has not created the subscription yet.
type CheckoutState struct {
	CustomerID    string
	SessionStatus string
	PaymentStatus string
	Subscription  *SubscriptionState
}

// BillingGateway wraps the Stripe calls the billing service depends on.
// It holds no state of its own.
type BillingGateway interface {
	CreateCustomer(ctx context.Context, email string, metadata map[string]string) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	RetrieveSession(ctx context.Context, sessionID string) (*CheckoutState, error)

	// LatestSubscription returns (nil, nil) when the customer has no
	// subscription in any status.
	LatestSubscription(ctx context.Context, customerID string) (*SubscriptionState, error)

	// CustomerAccountID reads the account id stored in the customer's
	// metadata at creation time; returns "" when the metadata is absent.
	CustomerAccountID(ctx context.Context, customerID string) (string, error)
}
