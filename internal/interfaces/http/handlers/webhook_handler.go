package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/AdGenMCM/Updated-AdGen/internal/domain/services"
	"github.com/AdGenMCM/Updated-AdGen/internal/infrastructure/billing"
	"github.com/AdGenMCM/Updated-AdGen/internal/metrics"
)

// EventDeduper remembers webhook event ids so retried deliveries are
// acknowledged without reprocessing.
type EventDeduper interface {
	MarkEventProcessed(ctx context.Context, eventID string) (bool, error)
	ClearEvent(ctx context.Context, eventID string) error
}

type WebhookHandler struct {
	billing services.BillingService
	dedup   EventDeduper
	secret  string
	logger  *slog.Logger
}

func NewWebhookHandler(billingSvc services.BillingService, dedup EventDeduper, secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		billing: billingSvc,
		dedup:   dedup,
		secret:  secret,
		logger:  logger,
	}
}

// Handle verifies the Stripe signature before trusting anything in the
// payload, then dispatches the event. Processing failures return 500 so
// Stripe redelivers; unattributable events are acknowledged.
func (h *WebhookHandler) Handle(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.secret)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "bad_signature").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "webhook signature verification failed"})
		return
	}

	ctx := c.Request.Context()
	eventType := string(event.Type)

	first, dedupErr := h.dedup.MarkEventProcessed(ctx, event.ID)
	if dedupErr != nil {
		// Dedup is an optimization; the merge itself is idempotent.
		h.logger.Warn("webhook dedup unavailable", "event_id", event.ID, "error", dedupErr)
	} else if !first {
		metrics.WebhookEvents.WithLabelValues(eventType, "duplicate").Inc()
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		return
	}

	if err := h.dispatch(ctx, &event); err != nil {
		// Release the event id so Stripe's redelivery is processed
		// instead of being swallowed as a duplicate.
		if dedupErr == nil {
			if clearErr := h.dedup.ClearEvent(ctx, event.ID); clearErr != nil {
				h.logger.Warn("failed to release webhook event id",
					"event_id", event.ID, "error", clearErr)
			}
		}
		metrics.WebhookEvents.WithLabelValues(eventType, "failed").Inc()
		h.logger.Error("failed to process webhook event",
			"event_id", event.ID, "type", eventType, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
		return
	}

	metrics.WebhookEvents.WithLabelValues(eventType, "ok").Inc()
	h.logger.Info("webhook processed", "event_id", event.ID, "type", eventType)
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandler) dispatch(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return err
		}

		var customerID, subscriptionID string
		if sess.Customer != nil {
			customerID = sess.Customer.ID
		}
		if sess.Subscription != nil {
			subscriptionID = sess.Subscription.ID
		}
		return h.billing.ApplyCheckoutCompleted(ctx, customerID, subscriptionID)

	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}

		deleted := event.Type == "customer.subscription.deleted"
		return h.billing.ApplySubscriptionEvent(ctx, billing.SubscriptionStateFrom(&sub), deleted)

	default:
		// Unhandled event kinds are acknowledged and ignored.
		return nil
	}
}
