package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AdGenMCM/Updated-AdGen/internal/domain/models"
	"github.com/AdGenMCM/Updated-AdGen/internal/domain/services"
	"github.com/AdGenMCM/Updated-AdGen/internal/interfaces/http/middleware"
)

type UsageHandler struct {
	usage services.UsageService
}

func NewUsageHandler(usage services.UsageService) *UsageHandler {
	return &UsageHandler{usage: usage}
}

// Peek reports usage without consuming a slot.
func (h *UsageHandler) Peek(c *gin.Context) {
	result, err := h.usage.Peek(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}

	c.JSON(http.StatusOK, usageBody(result))
}

// PeekAccount reports any account's usage; admin only.
func (h *UsageHandler) PeekAccount(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Param("account_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	result, err := h.usage.Peek(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}

	c.JSON(http.StatusOK, usageBody(result))
}

func usageBody(result *models.UsageResult) gin.H {
	return gin.H{
		"used":         result.Used,
		"cap":          result.Cap,
		"remaining":    result.Remaining(),
		"period_start": result.PeriodStart,
		"period_end":   result.PeriodEnd,
	}
}
