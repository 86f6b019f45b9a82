package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"

	"github.com/AdGenMCM/Updated-AdGen/internal/domain/models"
	"github.com/AdGenMCM/Updated-AdGen/internal/domain/services"
	"github.com/AdGenMCM/Updated-AdGen/internal/interfaces/http/middleware"
)

type BillingHandler struct {
	billing services.BillingService
}

func NewBillingHandler(billing services.BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	var req struct {
		Tier  models.Tier `json:"tier" binding:"required"`
		Email string      `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}

	url, err := h.billing.CreateCheckoutSession(c.Request.Context(), middleware.AccountID(c), req.Email, req.Tier)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTier) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tier"})
			return
		}
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *BillingHandler) CreatePortal(c *gin.Context) {
	url, err := h.billing.CreatePortalSession(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		if errors.Is(err, services.ErrNoBillingProfile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no billing profile", "message": err.Error()})
			return
		}
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Sync confirms or repairs subscription state right after the checkout
// redirect, without waiting for webhook delivery.
func (h *BillingHandler) Sync(c *gin.Context) {
	req := &services.SyncRequest{
		AccountID:  middleware.AccountID(c),
		SessionID:  c.Query("session_id"),
		CustomerID: c.Query("customer_id"),
	}
	if req.SessionID == "" && req.CustomerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request",
			"message": "provide session_id (cs_...) or customer_id (cus_...)",
		})
		return
	}

	result, err := h.billing.Sync(c.Request.Context(), req)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "result": result})
}

func (h *BillingHandler) GetEntitlement(c *gin.Context) {
	ent, err := h.billing.GetEntitlement(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load entitlement"})
		return
	}
	if ent == nil {
		c.JSON(http.StatusOK, gin.H{"entitlement": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entitlement": ent})
}

// respondBillingError splits Stripe failures into "bad reference" and
// "upstream unavailable, retry later".
func respondBillingError(c *gin.Context, err error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= http.StatusInternalServerError {
			c.JSON(http.StatusBadGateway, gin.H{"error": "billing provider unavailable", "retryable": true})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "billing request rejected", "message": stripeErr.Msg})
		return
	}

	c.JSON(http.StatusBadGateway, gin.H{"error": "billing provider unavailable", "retryable": true})
}
