package services

import (
	"fmt"

	"github.com/AdGenMCM/Updated-AdGen/internal/domain/models"
)

// proTiers are the plans that unlock the ad optimizer.
var proTiers = map[models.Tier]bool{
	models.TierPro:      true,
	models.TierBusiness: true,
}

// TierRequiredError is returned when an account's plan does not include
// a feature. Required lists the plans that do.
type TierRequiredError struct {
	Required []models.Tier
}

func (e *TierRequiredError) Error() string {
	return fmt.Sprintf("feature requires one of: %v", e.Required)
}

// RequireProTier gates the optimizer behind the Pro and Business plans.
// The entitlement may be nil (trial account).
func RequireProTier(ent *models.Entitlement) error {
	if ent != nil && ent.Tier != nil && proTiers[*ent.Tier] && ent.Status == models.StatusActive {
		return nil
	}
	return &TierRequiredError{
		Required: []models.Tier{models.TierPro, models.TierBusiness},
	}
}
