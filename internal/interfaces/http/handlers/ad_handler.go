package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdGenMCM/Updated-AdGen/internal/domain/models"
	"github.com/AdGenMCM/Updated-AdGen/internal/domain/services"
	"github.com/AdGenMCM/Updated-AdGen/internal/interfaces/http/middleware"
)

type AdHandler struct {
	ads     services.AdService
	usage   services.UsageService
	billing services.BillingService
}

func NewAdHandler(ads services.AdService, usage services.UsageService, billing services.BillingService) *AdHandler {
	return &AdHandler{
		ads:     ads,
		usage:   usage,
		billing: billing,
	}
}

// Generate runs the quota gate to completion before any provider call
// is made, then produces ad copy and image.
func (h *AdHandler) Generate(c *gin.Context) {
	var req models.AdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}

	result, err := h.usage.Enforce(c.Request.Context(), middleware.AccountID(c), middleware.Role(c))
	if err != nil {
		var quotaErr *services.QuotaExceededError
		if errors.As(err, &quotaErr) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":        "quota exceeded",
				"message":      quotaErr.Error(),
				"used":         quotaErr.Result.Used,
				"cap":          quotaErr.Result.Cap,
				"period_start": quotaErr.Result.PeriodStart,
				"period_end":   quotaErr.Result.PeriodEnd,
				"upgrade_path": "/account",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check usage"})
		return
	}

	ad, err := h.ads.GenerateAd(c.Request.Context(), &req)
	if err != nil {
		var provErr *services.ProviderError
		if errors.As(err, &provErr) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":     provErr.Error(),
				"retryable": true,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ad generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"text":      ad.Text,
		"image_url": ad.ImageURL,
		"usage": gin.H{
			"used": result.Used,
			"cap":  result.Cap,
		},
	})
}

// Optimize is the Pro/Business-only surface; it checks the entitlement
// tier before consuming a quota slot.
func (h *AdHandler) Optimize(c *gin.Context) {
	ent, err := h.billing.GetEntitlement(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load entitlement"})
		return
	}

	if err := services.RequireProTier(ent); err != nil {
		var tierErr *services.TierRequiredError
		if errors.As(err, &tierErr) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":          "upgrade required",
				"message":        "Ad Performance Optimization is available on Pro and Business plans.",
				"required_tiers": tierErr.Required,
				"upgrade_path":   "/account",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check entitlement"})
		return
	}

	h.Generate(c)
}
