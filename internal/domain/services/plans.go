package services

import (
	"fmt"

	"github.com/AdGenMCM/Updated-AdGen/internal/domain/models"
)

var tierCaps = map[models.Tier]int{
	models.TierTrial:    5,
	models.TierStarter:  25,
	models.TierPro:      60,
	models.TierBusiness: 175,
}

// CapForTier returns the monthly action cap for a tier. Unknown or
// absent tiers fall back to the trial cap.
func CapForTier(tier *models.Tier) int {
	if tier == nil {
		return tierCaps[models.TierTrial]
	}
	if cap, ok := tierCaps[*tier]; ok {
		return cap
	}
	return tierCaps[models.TierTrial]
}

// PlanTable is the immutable tier to Stripe price id mapping, built
// once at startup from configuration and passed to every component that
// needs it.
type PlanTable struct {
	prices map[models.Tier]string
	tiers  map[string]models.Tier
}

func NewPlanTable(priceMap map[string]string) (*PlanTable, error) {
	t := &PlanTable{
		prices: make(map[models.Tier]string, len(priceMap)),
		tiers:  make(map[string]models.Tier, len(priceMap)),
	}

	for tier := range tierCaps {
		priceID, ok := priceMap[string(tier)]
		if !ok || priceID == "" {
			return nil, fmt.Errorf("price map is missing tier %q", tier)
		}
		t.prices[tier] = priceID
		t.tiers[priceID] = tier
	}

	return t, nil
}

func (t *PlanTable) PriceID(tier models.Tier) (string, bool) {
	priceID, ok := t.prices[tier]
	return priceID, ok
}

// TierForPrice is the reverse lookup used when webhook events carry
// only a price id.
func (t *PlanTable) TierForPrice(priceID string) (models.Tier, bool) {
	tier, ok := t.tiers[priceID]
	return tier, ok
}
