package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AdGenMCM/Updated-AdGen/internal/domain/models"
	"github.com/AdGenMCM/Updated-AdGen/internal/domain/repositories"
	"github.com/AdGenMCM/Updated-AdGen/internal/metrics"
)

// QuotaExceededError carries enough data for the caller to render an
// upgrade prompt. It is a structured deny, not a transport failure.
type QuotaExceededError struct {
	Result *models.UsageResult
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("usage cap reached: %d of %d actions used this period", e.Result.Used, e.Result.Cap)
}

type UsageService interface {
	// Peek reports current usage without consuming a slot.
	Peek(ctx context.Context, accountID int64) (*models.UsageResult, error)

	// Enforce consumes one slot or returns *QuotaExceededError. It must
	// complete before any downstream provider call is made.
	Enforce(ctx context.Context, accountID int64, role models.UserRole) (*models.UsageResult, error)
}

type usageService struct {
	usage        repositories.UsageRepository
	entitlements repositories.EntitlementRepository
	logger       *slog.Logger
}

func NewUsageService(
	usage repositories.UsageRepository,
	entitlements repositories.EntitlementRepository,
	logger *slog.Logger,
) UsageService {
	return &usageService{
		usage:        usage,
		entitlements: entitlements,
		logger:       logger,
	}
}

func (s *usageService) Peek(ctx context.Context, accountID int64) (*models.UsageResult, error) {
	cap, periodStart, periodEnd, err := s.window(ctx, accountID)
	if err != nil {
		return nil, err
	}

	counter, err := s.usage.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	used := 0
	if counter != nil && counter.PeriodStart == periodStart {
		used = counter.Used
	}

	return &models.UsageResult{
		Allowed:     used < cap,
		Used:        used,
		Cap:         cap,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}, nil
}

func (s *usageService) Enforce(ctx context.Context, accountID int64, role models.UserRole) (*models.UsageResult, error) {
	if role == models.RoleAdmin {
		// Admins are not metered.
		result, err := s.Peek(ctx, accountID)
		if err != nil {
			return nil, err
		}
		result.Allowed = true
		return result, nil
	}

	cap, periodStart, periodEnd, err := s.window(ctx, accountID)
	if err != nil {
		return nil, err
	}

	result, err := s.usage.CheckAndIncrement(ctx, accountID, periodStart, periodEnd, cap)
	if err != nil {
		// A failed increment is never an allow.
		return nil, fmt.Errorf("failed to check usage: %w", err)
	}

	if !result.Allowed {
		metrics.QuotaDecisions.WithLabelValues("denied").Inc()
		s.logger.Info("usage cap reached",
			"account_id", accountID, "used", result.Used, "cap", result.Cap)
		return nil, &QuotaExceededError{Result: result}
	}

	metrics.QuotaDecisions.WithLabelValues("allowed").Inc()
	return result, nil
}

// window derives the cap and ledger period for an account from its
// entitlement. Only an active subscription consumes at its tier's cap
// inside the Stripe billing cycle; everything else counts against the
// trial cap in the single trial bucket.
func (s *usageService) window(ctx context.Context, accountID int64) (cap int, periodStart int64, periodEnd *int64, err error) {
	ent, err := s.entitlements.Get(ctx, accountID)
	if err != nil {
		return 0, 0, nil, err
	}

	periodStart = models.TrialPeriodKey

	if ent == nil || ent.Status != models.StatusActive {
		return CapForTier(nil), periodStart, nil, nil
	}

	if ent.CycleStart != nil {
		periodStart = *ent.CycleStart
		periodEnd = ent.CycleEnd
	}

	return CapForTier(ent.Tier), periodStart, periodEnd, nil
}
