package models

import (
	"time"
)

// Tier identifies a subscription plan. The set of valid tiers is fixed;
// the Stripe price id for each tier comes from configuration.
type Tier string

const (
	TierTrial    Tier = "trial_monthly"
	TierStarter  Tier = "starter_monthly"
	TierPro      Tier = "pro_monthly"
	TierBusiness Tier = "business_monthly"
)

type EntitlementStatus string

const (
	// StatusPending is the state between checkout-session creation and
	// the first subscription event. It is never re-entered.
	StatusPending  EntitlementStatus = "pending"
	StatusActive   EntitlementStatus = "active"
	StatusInactive EntitlementStatus = "inactive"
)

// Entitlement mirrors an account's subscription state as reported by
// Stripe. It is eventually consistent: the webhook stream and the sync
// endpoint both merge into it, field by field.
type Entitlement struct {
	AccountID            int64             `json:"account_id" db:"account_id"`
	Tier                 *Tier             `json:"tier" db:"tier"`
	Status               EntitlementStatus `json:"status" db:"status"`
	CycleStart           *int64            `json:"cycle_start" db:"cycle_start"`
	CycleEnd             *int64            `json:"cycle_end" db:"cycle_end"`
	StripeCustomerID     *string           `json:"stripe_customer_id" db:"stripe_customer_id"`
	StripeSubscriptionID *string           `json:"stripe_subscription_id" db:"stripe_subscription_id"`
	StripePriceID        *string           `json:"stripe_price_id" db:"stripe_price_id"`
	RequestedTier        *Tier             `json:"requested_tier" db:"requested_tier"`
	CreatedAt            time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at" db:"updated_at"`
}

// EntitlementPatch is a partial update. Nil fields are left untouched
// by the merge, so a writer that does not know a value can never clear
// one recorded by the other writer.
type EntitlementPatch struct {
	Tier                 *Tier
	Status               *EntitlementStatus
	CycleStart           *int64
	CycleEnd             *int64
	StripeCustomerID     *string
	StripeSubscriptionID *string
	StripePriceID        *string
	RequestedTier        *Tier
}
