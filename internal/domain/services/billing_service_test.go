package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdGenMCM/Updated-AdGen/internal/domain/models"
)

var testPriceMap = map[string]string{
	"trial_monthly":    "price_trial",
	"starter_monthly":  "price_starter",
	"pro_monthly":      "price_pro",
	"business_monthly": "price_business",
}

func newTestBillingService(t *testing.T) (BillingService, *fakeEntitlementRepo, *fakeCustomerIndex, *fakeGateway) {
	t.Helper()

	plans, err := NewPlanTable(testPriceMap)
	require.NoError(t, err)

	entRepo := newFakeEntitlementRepo()
	index := newFakeCustomerIndex()
	gateway := newFakeGateway()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewBillingService(entRepo, index, gateway, plans, "http://localhost:3000", logger)
	return svc, entRepo, index, gateway
}

func TestPastDueKeepsEntitlementActive(t *testing.T) {
	svc, entRepo, index, _ := newTestBillingService(t)
	ctx := context.Background()

	require.NoError(t, index.Record(ctx, "cus_1", 10))

	err := svc.ApplySubscriptionEvent(ctx, &SubscriptionState{
		ID:          "sub_1",
		CustomerID:  "cus_1",
		Status:      "past_due",
		PriceID:     "price_starter",
		PeriodStart: 1700000000,
		PeriodEnd:   1702592000,
	}, false)
	require.NoError(t, err)

	ent, err := entRepo.Get(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, ent)
	assert.Equal(t, models.StatusActive, ent.Status)
	require.NotNil(t, ent.Tier)
	assert.Equal(t, models.TierStarter, *ent.Tier)
	assert.Equal(t, "price_starter", *ent.StripePriceID)
	assert.Equal(t, int64(1700000000), *ent.CycleStart)
}

func TestDeletedSubscriptionKeepsTier(t *testing.T) {
	svc, entRepo, index, _ := newTestBillingService(t)
	ctx := context.Background()

	require.NoError(t, index.Record(ctx, "cus_2", 11))

	create := &SubscriptionState{
		ID: "sub_2", CustomerID: "cus_2", Status: "active",
		PriceID: "price_pro", PeriodStart: 1700000000, PeriodEnd: 1702592000,
	}
	require.NoError(t, svc.ApplySubscriptionEvent(ctx, create, false))

	deleted := &SubscriptionState{ID: "sub_2", CustomerID: "cus_2", Status: "canceled"}
	require.NoError(t, svc.ApplySubscriptionEvent(ctx, deleted, true))

	ent, err := entRepo.Get(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, ent.Status)
	require.NotNil(t, ent.Tier, "deletion must not erase the last known tier")
	assert.Equal(t, models.TierPro, *ent.Tier)
	assert.Equal(t, int64(1700000000), *ent.CycleStart)
}

func TestWebhookReplayIsIdempotent(t *testing.T) {
	svc, entRepo, index, _ := newTestBillingService(t)
	ctx := context.Background()

	require.NoError(t, index.Record(ctx, "cus_3", 12))

	event := &SubscriptionState{
		ID: "sub_3", CustomerID: "cus_3", Status: "active",
		PriceID: "price_business", PeriodStart: 1700000000, PeriodEnd: 1702592000,
	}
	require.NoError(t, svc.ApplySubscriptionEvent(ctx, event, false))
	first, err := entRepo.Get(ctx, 12)
	require.NoError(t, err)

	require.NoError(t, svc.ApplySubscriptionEvent(ctx, event, false))
	second, err := entRepo.Get(ctx, 12)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, *first.Tier, *second.Tier)
	assert.Equal(t, *first.StripePriceID, *second.StripePriceID)
	assert.Equal(t, *first.CycleStart, *second.CycleStart)
	assert.Equal(t, *first.CycleEnd, *second.CycleEnd)
}

func TestStatusOnlyEventPreservesTier(t *testing.T) {
	svc, entRepo, index, _ := newTestBillingService(t)
	ctx := context.Background()

	require.NoError(t, index.Record(ctx, "cus_4", 13))

	full := &SubscriptionState{
		ID: "sub_4", CustomerID: "cus_4", Status: "active",
		PriceID: "price_starter", PeriodStart: 1700000000,
	}
	require.NoError(t, svc.ApplySubscriptionEvent(ctx, full, false))

	// Later event carries no price (no line items in the payload).
	statusOnly := &SubscriptionState{ID: "sub_4", CustomerID: "cus_4", Status: "unpaid"}
	require.NoError(t, svc.ApplySubscriptionEvent(ctx, statusOnly, false))

	ent, err := entRepo.Get(ctx, 13)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, ent.Status)
	require.NotNil(t, ent.Tier)
	assert.Equal(t, models.TierStarter, *ent.Tier)
	assert.Equal(t, "price_starter", *ent.StripePriceID)
}

func TestUnattributableEventIsDropped(t *testing.T) {
	svc, entRepo, index, _ := newTestBillingService(t)
	ctx := context.Background()

	event := &SubscriptionState{ID: "sub_x", CustomerID: "cus_unknown", Status: "active"}
	require.NoError(t, svc.ApplySubscriptionEvent(ctx, event, false), "unattributable events are not errors")

	assert.Empty(t, entRepo.records, "no entitlement may be created for an unknown customer")
	assert.Zero(t, index.records)
}

func TestMetadataRepairsCustomerIndex(t *testing.T) {
	svc, entRepo, index, gateway := newTestBillingService(t)
	ctx := context.Background()

	// Index lost the mapping, but the Stripe customer metadata has it.
	gateway.metadata["cus_5"] = "14"

	event := &SubscriptionState{
		ID: "sub_5", CustomerID: "cus_5", Status: "active", PriceID: "price_pro",
	}
	require.NoError(t, svc.ApplySubscriptionEvent(ctx, event, false))

	accountID, err := index.Resolve(ctx, "cus_5")
	require.NoError(t, err)
	assert.Equal(t, int64(14), accountID, "index must be repaired write-through")

	ent, err := entRepo.Get(ctx, 14)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, ent.Status)
}

func TestSyncSessionWithoutSubscriptionIsPending(t *testing.T) {
	svc, entRepo, _, gateway := newTestBillingService(t)
	ctx := context.Background()

	gateway.sessions["cs_1"] = &CheckoutState{
		CustomerID:    "cus_6",
		SessionStatus: "open",
		PaymentStatus: "unpaid",
	}

	result, err := svc.Sync(ctx, &SyncRequest{AccountID: 15, SessionID: "cs_1"})
	require.NoError(t, err, "missing subscription is not an error")
	assert.Equal(t, models.StatusPending, result.Status)

	ent, err := entRepo.Get(ctx, 15)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, ent.Status)
}

func TestSyncSessionWithSubscription(t *testing.T) {
	svc, entRepo, index, gateway := newTestBillingService(t)
	ctx := context.Background()

	gateway.sessions["cs_2"] = &CheckoutState{
		CustomerID:    "cus_7",
		SessionStatus: "complete",
		PaymentStatus: "paid",
		Subscription: &SubscriptionState{
			ID: "sub_7", CustomerID: "cus_7", Status: "trialing",
			PriceID: "price_business", PeriodStart: 1700000000, PeriodEnd: 1702592000,
		},
	}

	result, err := svc.Sync(ctx, &SyncRequest{AccountID: 16, SessionID: "cs_2"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, result.Status)
	require.NotNil(t, result.Tier)
	assert.Equal(t, models.TierBusiness, *result.Tier)

	ent, err := entRepo.Get(ctx, 16)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, ent.Status)
	assert.Equal(t, "sub_7", *ent.StripeSubscriptionID)

	accountID, err := index.Resolve(ctx, "cus_7")
	require.NoError(t, err)
	assert.Equal(t, int64(16), accountID)
}

func TestSyncByCustomerDoesNotRegressActiveToPending(t *testing.T) {
	svc, entRepo, index, gateway := newTestBillingService(t)
	ctx := context.Background()

	require.NoError(t, index.Record(ctx, "cus_8", 17))
	require.NoError(t, svc.ApplySubscriptionEvent(ctx, &SubscriptionState{
		ID: "sub_8", CustomerID: "cus_8", Status: "active", PriceID: "price_starter",
	}, false))

	// Stripe briefly reports no subscription; the record keeps its
	// post-webhook status instead of re-entering pending.
	gateway.latestSubs["cus_8"] = nil

	result, err := svc.Sync(ctx, &SyncRequest{AccountID: 17, CustomerID: "cus_8"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, result.Status)

	ent, err := entRepo.Get(ctx, 17)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, ent.Status)
}

func TestCheckoutCreatesPendingEntitlement(t *testing.T) {
	svc, entRepo, index, _ := newTestBillingService(t)
	ctx := context.Background()

	url, err := svc.CreateCheckoutSession(ctx, 20, "buyer@example.com", models.TierStarter)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/session", url)

	ent, err := entRepo.Get(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, ent.Status)
	require.NotNil(t, ent.RequestedTier)
	assert.Equal(t, models.TierStarter, *ent.RequestedTier)
	require.NotNil(t, ent.StripeCustomerID)

	accountID, err := index.Resolve(ctx, *ent.StripeCustomerID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), accountID)
}

func TestCheckoutDoesNotResetActiveStatus(t *testing.T) {
	svc, entRepo, index, _ := newTestBillingService(t)
	ctx := context.Background()

	require.NoError(t, index.Record(ctx, "cus_9", 21))
	require.NoError(t, svc.ApplySubscriptionEvent(ctx, &SubscriptionState{
		ID: "sub_9", CustomerID: "cus_9", Status: "active", PriceID: "price_starter",
	}, false))

	// Upgrading: a second checkout must not push the account back to
	// pending while the current subscription is still live.
	_, err := svc.CreateCheckoutSession(ctx, 21, "", models.TierPro)
	require.NoError(t, err)

	ent, err := entRepo.Get(ctx, 21)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, ent.Status)
	assert.Equal(t, models.TierPro, *ent.RequestedTier)
}

func TestCheckoutRejectsUnknownTier(t *testing.T) {
	svc, _, _, _ := newTestBillingService(t)

	_, err := svc.CreateCheckoutSession(context.Background(), 22, "", models.Tier("gold_yearly"))
	require.ErrorIs(t, err, ErrInvalidTier)
}

func TestPortalRequiresBillingProfile(t *testing.T) {
	svc, _, _, _ := newTestBillingService(t)

	_, err := svc.CreatePortalSession(context.Background(), 23)
	require.ErrorIs(t, err, ErrNoBillingProfile)
}
