package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AdGenMCM/Updated-AdGen/internal/domain/models"
)

// fakeEntitlementRepo keeps entitlements in memory with the same
// partial-field merge rules as the Postgres implementation.
type fakeEntitlementRepo struct {
	mu      sync.Mutex
	records map[int64]*models.Entitlement
}

func newFakeEntitlementRepo() *fakeEntitlementRepo {
	return &fakeEntitlementRepo{records: make(map[int64]*models.Entitlement)}
}

func (r *fakeEntitlementRepo) Get(_ context.Context, accountID int64) (*models.Entitlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ent, ok := r.records[accountID]
	if !ok {
		return nil, nil
	}
	copied := *ent
	return &copied, nil
}

func (r *fakeEntitlementRepo) Merge(_ context.Context, accountID int64, patch *models.EntitlementPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ent, ok := r.records[accountID]
	if !ok {
		ent = &models.Entitlement{
			AccountID: accountID,
			Status:    models.StatusPending,
			CreatedAt: time.Now(),
		}
		r.records[accountID] = ent
	}

	if patch.Tier != nil {
		ent.Tier = patch.Tier
	}
	if patch.Status != nil {
		ent.Status = *patch.Status
	}
	if patch.CycleStart != nil {
		ent.CycleStart = patch.CycleStart
	}
	if patch.CycleEnd != nil {
		ent.CycleEnd = patch.CycleEnd
	}
	if patch.StripeCustomerID != nil {
		ent.StripeCustomerID = patch.StripeCustomerID
	}
	if patch.StripeSubscriptionID != nil {
		ent.StripeSubscriptionID = patch.StripeSubscriptionID
	}
	if patch.StripePriceID != nil {
		ent.StripePriceID = patch.StripePriceID
	}
	if patch.RequestedTier != nil {
		ent.RequestedTier = patch.RequestedTier
	}
	ent.UpdatedAt = time.Now()

	return nil
}

// fakeUsageRepo serializes check-and-increment with a mutex, mirroring
// the per-account row lock of the Postgres implementation.
type fakeUsageRepo struct {
	mu       sync.Mutex
	counters map[int64]*models.UsageCounter
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{counters: make(map[int64]*models.UsageCounter)}
}

func (r *fakeUsageRepo) CheckAndIncrement(_ context.Context, accountID int64, periodStart int64, periodEnd *int64, cap int) (*models.UsageResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counter, ok := r.counters[accountID]
	if !ok {
		counter = &models.UsageCounter{AccountID: accountID, PeriodStart: periodStart}
		r.counters[accountID] = counter
	}

	used := counter.Used
	if counter.PeriodStart != periodStart {
		used = 0
	}

	allowed := used < cap
	if allowed {
		used++
	}

	counter.PeriodStart = periodStart
	counter.PeriodEnd = periodEnd
	counter.Used = used
	counter.UpdatedAt = time.Now()

	return &models.UsageResult{
		Allowed:     allowed,
		Used:        used,
		Cap:         cap,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}, nil
}

func (r *fakeUsageRepo) Get(_ context.Context, accountID int64) (*models.UsageCounter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counter, ok := r.counters[accountID]
	if !ok {
		return nil, nil
	}
	copied := *counter
	return &copied, nil
}

type fakeCustomerIndex struct {
	mu      sync.Mutex
	byID    map[string]int64
	records int
}

func newFakeCustomerIndex() *fakeCustomerIndex {
	return &fakeCustomerIndex{byID: make(map[string]int64)}
}

func (r *fakeCustomerIndex) Resolve(_ context.Context, customerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[customerID], nil
}

func (r *fakeCustomerIndex) Record(_ context.Context, customerID string, accountID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[customerID] = accountID
	r.records++
	return nil
}

// fakeGateway returns canned Stripe responses.
type fakeGateway struct {
	metadata    map[string]string
	sessions    map[string]*CheckoutState
	latestSubs  map[string]*SubscriptionState
	nextID      int
	checkoutURL string
	portalURL   string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		metadata:    make(map[string]string),
		sessions:    make(map[string]*CheckoutState),
		latestSubs:  make(map[string]*SubscriptionState),
		checkoutURL: "https://checkout.example/session",
		portalURL:   "https://portal.example/session",
	}
}

func (g *fakeGateway) CreateCustomer(_ context.Context, _ string, metadata map[string]string) (string, error) {
	g.nextID++
	customerID := fmt.Sprintf("cus_fake%d", g.nextID)
	g.metadata[customerID] = metadata["account_id"]
	return customerID, nil
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, _, _, _, _ string) (string, error) {
	return g.checkoutURL, nil
}

func (g *fakeGateway) CreatePortalSession(_ context.Context, _, _ string) (string, error) {
	return g.portalURL, nil
}

func (g *fakeGateway) RetrieveSession(_ context.Context, sessionID string) (*CheckoutState, error) {
	state, ok := g.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("no such session: %s", sessionID)
	}
	return state, nil
}

func (g *fakeGateway) LatestSubscription(_ context.Context, customerID string) (*SubscriptionState, error) {
	return g.latestSubs[customerID], nil
}

func (g *fakeGateway) CustomerAccountID(_ context.Context, customerID string) (string, error) {
	return g.metadata[customerID], nil
}
