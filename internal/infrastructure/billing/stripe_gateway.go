package billing

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	portalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/subscription"

	"github.com/AdGenMCM/Updated-AdGen/internal/domain/services"
)

// StripeGateway implements services.BillingGateway on the stripe-go
// package-level API. stripe.Key must be set before use.
type StripeGateway struct{}

func NewStripeGateway() *StripeGateway {
	return &StripeGateway{}
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email string, metadata map[string]string) (string, error) {
	params := &stripe.CustomerParams{
		Params:   stripe.Params{Context: ctx},
		Metadata: metadata,
	}
	if email != "" {
		params.Email = stripe.String(email)
	}

	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create Stripe customer: %w", err)
	}

	return cust.ID, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx},
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(customerID),
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		AllowPromotionCodes: stripe.Bool(true),
	}

	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	return sess.URL, nil
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}

	sess, err := portalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}

	return sess.URL, nil
}

func (g *StripeGateway) RetrieveSession(ctx context.Context, sessionID string) (*services.CheckoutState, error) {
	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	}
	params.AddExpand("subscription")

	sess, err := session.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve checkout session: %w", err)
	}

	state := &services.CheckoutState{
		SessionStatus: string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
	}
	if sess.Customer != nil {
		state.CustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		state.Subscription = SubscriptionStateFrom(sess.Subscription)
	}

	return state, nil
}

func (g *StripeGateway) LatestSubscription(ctx context.Context, customerID string) (*services.SubscriptionState, error) {
	params := &stripe.SubscriptionListParams{
		ListParams: stripe.ListParams{Context: ctx, Limit: stripe.Int64(1)},
		Customer:   stripe.String(customerID),
		Status:     stripe.String("all"),
	}

	iter := subscription.List(params)
	for iter.Next() {
		return SubscriptionStateFrom(iter.Subscription()), nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return nil, nil
}

func (g *StripeGateway) CustomerAccountID(ctx context.Context, customerID string) (string, error) {
	cust, err := customer.Get(customerID, &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return "", fmt.Errorf("failed to retrieve Stripe customer: %w", err)
	}

	return cust.Metadata["account_id"], nil
}

// SubscriptionStateFrom flattens a Stripe subscription into the fields
// the billing service consumes. Also used by the webhook handler when
// decoding event payloads.
func SubscriptionStateFrom(sub *stripe.Subscription) *services.SubscriptionState {
	state := &services.SubscriptionState{
		ID:          sub.ID,
		Status:      string(sub.Status),
		PeriodStart: sub.CurrentPeriodStart,
		PeriodEnd:   sub.CurrentPeriodEnd,
	}
	if sub.Customer != nil {
		state.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		state.PriceID = sub.Items.Data[0].Price.ID
	}

	return state
}
