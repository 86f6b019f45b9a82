package models

import (
	"time"
)

// TrialPeriodKey is the ledger bucket used when an account has no
// billing cycle yet. All trial usage for an account accumulates in this
// single bucket until the first paid cycle supplies a real period key.
const TrialPeriodKey int64 = 0

// UsageCounter is the per-account ledger row. PeriodStart is the reset
// key: when the computed key differs from the stored one, Used is
// treated as zero on the next read or write.
type UsageCounter struct {
	AccountID   int64     `json:"account_id" db:"account_id"`
	PeriodStart int64     `json:"period_start" db:"period_start"`
	PeriodEnd   *int64    `json:"period_end" db:"period_end"`
	Used        int       `json:"used" db:"used"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// UsageResult is the outcome of a quota decision.
type UsageResult struct {
	Allowed     bool   `json:"allowed"`
	Used        int    `json:"used"`
	Cap         int    `json:"cap"`
	PeriodStart int64  `json:"period_start"`
	PeriodEnd   *int64 `json:"period_end"`
}

func (r *UsageResult) Remaining() int {
	if r.Cap < r.Used {
		return 0
	}
	return r.Cap - r.Used
}
