package engine_test

import (
	"math"
	"testing"

	"github.com/praxisfm/finengine/internal/domain"
	"github.com/praxisfm/finengine/internal/engine"
)

func TestApplyLockup_TrailingWindow(t *testing.T) {
	// 14 months of steady revenue: window clips at 12 months.
	series := make([]*domain.PeriodMetrics, 14)
	for i := range series {
		series[i] = &domain.PeriodMetrics{Time: 100, Balance: 1200}
	}

	engine.ApplyLockup(series, domain.FamilyWIP)

	// Bucket 13 has a full 12-month window: trailing = 1200.
	want := 1200.0 * 365 / 1200
	if math.Abs(series[13].LockupDays-want) > 1e-9 {
		t.Errorf("expected lockup %f, got %f", want, series[13].LockupDays)
	}
	// Bucket 0 only has 1 month of history: trailing = 100.
	wantFirst := 1200.0 * 365 / 100
	if math.Abs(series[0].LockupDays-wantFirst) > 1e-9 {
		t.Errorf("expected partial-history lockup %f, got %f", wantFirst, series[0].LockupDays)
	}
}

// Scenario: trailing revenue 0 for a bucket with balance 500 → 0, not an error.
func TestApplyLockup_ZeroTrailingRevenue(t *testing.T) {
	series := []*domain.PeriodMetrics{
		{Date: "2025-01", Balance: 500},
	}

	engine.ApplyLockup(series, domain.FamilyWIP)

	if series[0].LockupDays != 0 {
		t.Errorf("expected lockup 0 for zero trailing revenue, got %f", series[0].LockupDays)
	}
}

func TestApplyLockup_AlwaysFinite(t *testing.T) {
	series := []*domain.PeriodMetrics{
		{Date: "2025-01", Time: 100, Balance: -50},
		{Date: "2025-02", Adjustments: -100, Balance: 400},
		{Date: "2025-03", Balance: 900},
	}

	engine.ApplyLockup(series, domain.FamilyWIP)

	for i, b := range series {
		if math.IsNaN(b.LockupDays) || math.IsInf(b.LockupDays, 0) {
			t.Errorf("bucket %d: lockup not finite: %f", i, b.LockupDays)
		}
		if b.LockupDays < 0 {
			t.Errorf("bucket %d: lockup negative: %f", i, b.LockupDays)
		}
	}
}

func TestApplyLockup_DebtorsUsesNetBillings(t *testing.T) {
	series := []*domain.PeriodMetrics{
		{Date: "2025-01", Billings: 200, Fees: 50, OtherNetBillings: 115, Receipts: 5000, Balance: 365},
	}

	engine.ApplyLockup(series, domain.FamilyDebtors)

	// Trailing billings = 365; receipts excluded entirely.
	if series[0].LockupDays != 365 {
		t.Errorf("expected debtors lockup 365, got %f", series[0].LockupDays)
	}
}

func TestApplyLockup_WIPRevenueIsTimePlusAdjustments(t *testing.T) {
	series := []*domain.PeriodMetrics{
		{Date: "2025-01", Time: 300, Adjustments: 65, Billings: 9999, Balance: 365},
	}

	engine.ApplyLockup(series, domain.FamilyWIP)

	if series[0].LockupDays != 365 {
		t.Errorf("expected WIP lockup 365, got %f", series[0].LockupDays)
	}
}
