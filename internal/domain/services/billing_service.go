package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/AdGenMCM/Updated-AdGen/internal/domain/models"
	"github.com/AdGenMCM/Updated-AdGen/internal/domain/repositories"
)

// ErrNoBillingProfile is returned when an operation needs a Stripe
// customer but the account never started a checkout.
var ErrNoBillingProfile = fmt.Errorf("account has no billing profile")

// ErrInvalidTier is returned for tiers outside the plan table.
var ErrInvalidTier = fmt.Errorf("invalid tier")

// activeLike folds Stripe's recoverable statuses into "active":
// past_due subscriptions keep their entitlement while Stripe retries
// the payment.
var activeLike = map[string]bool{
	"active":   true,
	"trialing": true,
	"past_due": true,
}

type SyncRequest struct {
	AccountID  int64
	SessionID  string
	CustomerID string
}

type SyncResult struct {
	Status             models.EntitlementStatus `json:"status"`
	Tier               *models.Tier             `json:"tier"`
	SubscriptionStatus string                   `json:"subscription_status,omitempty"`
	SessionStatus      string                   `json:"session_status,omitempty"`
	PaymentStatus      string                   `json:"payment_status,omitempty"`
}

type BillingService interface {
	CreateCheckoutSession(ctx context.Context, accountID int64, email string, tier models.Tier) (string, error)
	CreatePortalSession(ctx context.Context, accountID int64) (string, error)
	Sync(ctx context.Context, req *SyncRequest) (*SyncResult, error)
	GetEntitlement(ctx context.Context, accountID int64) (*models.Entitlement, error)

	// ApplySubscriptionEvent handles customer.subscription.created,
	// updated and deleted webhook events. Events for customers that
	// cannot be attributed to an account are dropped without error.
	ApplySubscriptionEvent(ctx context.Context, sub *SubscriptionState, deleted bool) error

	// ApplyCheckoutCompleted handles checkout.session.completed. The
	// session is not the source of truth for the plan; subscription
	// events carry the price and cycle and follow separately.
	ApplyCheckoutCompleted(ctx context.Context, customerID, subscriptionID string) error
}

type billingService struct {
	entitlements repositories.EntitlementRepository
	customers    repositories.CustomerIndexRepository
	gateway      BillingGateway
	plans        *PlanTable
	frontendURL  string
	logger       *slog.Logger
}

func NewBillingService(
	entitlements repositories.EntitlementRepository,
	customers repositories.CustomerIndexRepository,
	gateway BillingGateway,
	plans *PlanTable,
	frontendURL string,
	logger *slog.Logger,
) BillingService {
	return &billingService{
		entitlements: entitlements,
		customers:    customers,
		gateway:      gateway,
		plans:        plans,
		frontendURL:  frontendURL,
		logger:       logger,
	}
}

func (s *billingService) CreateCheckoutSession(ctx context.Context, accountID int64, email string, tier models.Tier) (string, error) {
	priceID, ok := s.plans.PriceID(tier)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidTier, tier)
	}

	ent, err := s.entitlements.Get(ctx, accountID)
	if err != nil {
		return "", err
	}

	var customerID string
	if ent != nil && ent.StripeCustomerID != nil {
		customerID = *ent.StripeCustomerID
	} else {
		customerID, err = s.gateway.CreateCustomer(ctx, email, map[string]string{
			"account_id": strconv.FormatInt(accountID, 10),
		})
		if err != nil {
			return "", err
		}
	}

	if err := s.customers.Record(ctx, customerID, accountID); err != nil {
		return "", err
	}

	patch := &models.EntitlementPatch{
		StripeCustomerID: &customerID,
		RequestedTier:    &tier,
	}
	// "pending" is only the pre-first-webhook state; once a
	// subscription event has been observed it is never re-entered.
	if ent == nil || ent.Status == models.StatusPending {
		pending := models.StatusPending
		patch.Status = &pending
	}
	if err := s.entitlements.Merge(ctx, accountID, patch); err != nil {
		return "", err
	}

	successURL := s.frontendURL + "/subscribe?success=1&session_id={CHECKOUT_SESSION_ID}"
	cancelURL := s.frontendURL + "/subscribe?canceled=1"

	url, err := s.gateway.CreateCheckoutSession(ctx, customerID, priceID, successURL, cancelURL)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	return url, nil
}

func (s *billingService) CreatePortalSession(ctx context.Context, accountID int64) (string, error) {
	ent, err := s.entitlements.Get(ctx, accountID)
	if err != nil {
		return "", err
	}
	if ent == nil || ent.StripeCustomerID == nil {
		return "", ErrNoBillingProfile
	}

	return s.gateway.CreatePortalSession(ctx, *ent.StripeCustomerID, s.frontendURL+"/subscribe")
}

func (s *billingService) GetEntitlement(ctx context.Context, accountID int64) (*models.Entitlement, error) {
	return s.entitlements.Get(ctx, accountID)
}

func (s *billingService) ApplySubscriptionEvent(ctx context.Context, sub *SubscriptionState, deleted bool) error {
	accountID, err := s.resolveAccount(ctx, sub.CustomerID)
	if err != nil {
		return err
	}
	if accountID == 0 {
		// Permanently unattributable; retrying cannot repair the link.
		s.logger.Warn("dropping billing event for unknown customer",
			"customer_id", sub.CustomerID, "subscription_id", sub.ID)
		return nil
	}

	patch := &models.EntitlementPatch{
		StripeCustomerID: &sub.CustomerID,
	}
	if sub.ID != "" {
		patch.StripeSubscriptionID = &sub.ID
	}

	if deleted {
		// Historical record: tier and cycle stay at their last values.
		inactive := models.StatusInactive
		patch.Status = &inactive
	} else {
		status := deriveStatus(sub.Status)
		patch.Status = &status
		s.applyPlanFields(patch, sub)
	}

	return s.entitlements.Merge(ctx, accountID, patch)
}

func (s *billingService) ApplyCheckoutCompleted(ctx context.Context, customerID, subscriptionID string) error {
	accountID, err := s.resolveAccount(ctx, customerID)
	if err != nil {
		return err
	}
	if accountID == 0 {
		s.logger.Warn("dropping checkout event for unknown customer", "customer_id", customerID)
		return nil
	}

	active := models.StatusActive
	patch := &models.EntitlementPatch{
		StripeCustomerID: &customerID,
		Status:           &active,
	}
	if subscriptionID != "" {
		patch.StripeSubscriptionID = &subscriptionID
	}

	return s.entitlements.Merge(ctx, accountID, patch)
}

// Sync is the pull-based repair path used right after the checkout
// redirect, when the client cannot wait for webhook delivery.
func (s *billingService) Sync(ctx context.Context, req *SyncRequest) (*SyncResult, error) {
	switch {
	case req.SessionID != "":
		return s.syncFromSession(ctx, req.AccountID, req.SessionID)
	case req.CustomerID != "":
		return s.syncFromCustomer(ctx, req.AccountID, req.CustomerID)
	default:
		return nil, fmt.Errorf("provide session_id or customer_id")
	}
}

func (s *billingService) syncFromSession(ctx context.Context, accountID int64, sessionID string) (*SyncResult, error) {
	state, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{
		Status:        models.StatusPending,
		SessionStatus: state.SessionStatus,
		PaymentStatus: state.PaymentStatus,
	}

	// A session whose subscription has not been created yet reports
	// pending; the webhook or a later sync will finish the job.
	paid := state.SessionStatus == "complete" && state.PaymentStatus == "paid"
	if state.Subscription != nil {
		result.SubscriptionStatus = state.Subscription.Status
		if activeLike[state.Subscription.Status] || paid {
			result.Status = models.StatusActive
		}
	}

	return result, s.mergeSyncState(ctx, accountID, state.CustomerID, state.Subscription, result)
}

func (s *billingService) syncFromCustomer(ctx context.Context, accountID int64, customerID string) (*SyncResult, error) {
	sub, err := s.gateway.LatestSubscription(ctx, customerID)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Status: models.StatusPending}
	if sub != nil {
		result.SubscriptionStatus = sub.Status
		if activeLike[sub.Status] {
			result.Status = models.StatusActive
		}
	}

	return result, s.mergeSyncState(ctx, accountID, customerID, sub, result)
}

func (s *billingService) mergeSyncState(ctx context.Context, accountID int64, customerID string, sub *SubscriptionState, result *SyncResult) error {
	if customerID == "" {
		return nil
	}

	if err := s.customers.Record(ctx, customerID, accountID); err != nil {
		return err
	}

	patch := &models.EntitlementPatch{
		StripeCustomerID: &customerID,
	}
	if result.Status != models.StatusPending {
		patch.Status = &result.Status
	} else {
		// Same rule as checkout: once any subscription event has been
		// observed, pending is never re-entered.
		ent, err := s.entitlements.Get(ctx, accountID)
		if err != nil {
			return err
		}
		if ent == nil || ent.Status == models.StatusPending {
			patch.Status = &result.Status
		}
	}
	if sub != nil {
		if sub.ID != "" {
			patch.StripeSubscriptionID = &sub.ID
		}
		s.applyPlanFields(patch, sub)
		result.Tier = patch.Tier
	}

	return s.entitlements.Merge(ctx, accountID, patch)
}

// applyPlanFields copies price, tier and cycle bounds into the patch,
// but only when the event actually carries them. A subscription payload
// without a price must not clear a previously recorded tier.
func (s *billingService) applyPlanFields(patch *models.EntitlementPatch, sub *SubscriptionState) {
	if sub.PriceID != "" {
		priceID := sub.PriceID
		patch.StripePriceID = &priceID
		if tier, ok := s.plans.TierForPrice(priceID); ok {
			patch.Tier = &tier
		}
	}
	if sub.PeriodStart > 0 {
		start := sub.PeriodStart
		patch.CycleStart = &start
	}
	if sub.PeriodEnd > 0 {
		end := sub.PeriodEnd
		patch.CycleEnd = &end
	}
}

// resolveAccount prefers the stored reverse index and falls back to the
// account id kept in the Stripe customer's metadata, repairing the
// index on the way. Returns 0 when neither source knows the customer.
func (s *billingService) resolveAccount(ctx context.Context, customerID string) (int64, error) {
	if customerID == "" {
		return 0, nil
	}

	accountID, err := s.customers.Resolve(ctx, customerID)
	if err != nil {
		return 0, err
	}
	if accountID != 0 {
		return accountID, nil
	}

	raw, err := s.gateway.CustomerAccountID(ctx, customerID)
	if err != nil {
		s.logger.Error("failed to look up customer metadata", "customer_id", customerID, "error", err)
		return 0, nil
	}
	if raw == "" {
		return 0, nil
	}

	accountID, err = strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, nil
	}

	if err := s.customers.Record(ctx, customerID, accountID); err != nil {
		return 0, err
	}

	return accountID, nil
}

func deriveStatus(raw string) models.EntitlementStatus {
	if activeLike[raw] {
		return models.StatusActive
	}
	return models.StatusInactive
}
