package engine

import "github.com/praxisfm/finengine/internal/domain"

// lockupWindow is the trailing window length, in month buckets,
// over which revenue/billings are summed for lockup days.
const lockupWindow = 12

// ApplyLockup writes the trailing-12-month lockup-day ratio into each
// bucket of a monthly series:
//
//	lockupDays(t) = balance(t) * 365 / Σ revenue(t-11 .. t)
//
// where revenue is Time + Adjustments for WIP and NetBillings for
// Debtors. The input must be the non-cumulative monthly series with
// balances already accumulated — never a downsampled copy. A trailing
// sum of 0 yields 0; the ratio is always finite and non-negative.
// Entities with less than 12 months of history sum over however much
// trailing history exists inside the series.
func ApplyLockup(series []*domain.PeriodMetrics, family domain.MetricFamily) {
	for i, b := range series {
		trailing := 0.0
		for j := max(0, i-lockupWindow+1); j <= i; j++ {
			trailing += trailingRevenue(series[j], family)
		}
		b.LockupDays = lockupDays(b.Balance, trailing)
	}
}

func trailingRevenue(b *domain.PeriodMetrics, family domain.MetricFamily) float64 {
	if family == domain.FamilyDebtors {
		// Receipts never count toward trailing billings.
		return NetBillings(b)
	}
	return b.Time + b.Adjustments
}

// lockupDays never divides by zero and never yields NaN/Inf; a negative
// balance reads as zero days tied up.
func lockupDays(balance, trailing float64) float64 {
	if trailing == 0 {
		return 0
	}
	days := domain.SafeNum(balance * 365 / trailing)
	if days < 0 {
		return 0
	}
	return days
}
