package engine_test

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/praxisfm/finengine/internal/domain"
	"github.com/praxisfm/finengine/internal/engine"
)

func dailySeries(n int) []*domain.PeriodMetrics {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make([]*domain.PeriodMetrics, n)
	for i := range series {
		series[i] = &domain.PeriodMetrics{Date: start.AddDate(0, 0, i).Format("2006-01-02")}
	}
	return series
}

// Scenario: 400 daily buckets, 5 non-zero, target 60 → those 5 plus
// evenly strided zero points, sorted by date.
func TestDownsample_KeepsAllNonZeroPoints(t *testing.T) {
	series := dailySeries(400)
	nonZeroIdx := []int{3, 77, 150, 290, 399}
	for _, i := range nonZeroIdx {
		series[i].Time = 100
	}

	out := engine.Downsample(series, 60)

	if len(out) > 60 {
		t.Errorf("expected at most 60 points, got %d", len(out))
	}
	if len(out) < 55 {
		t.Errorf("expected roughly 60 points, got %d", len(out))
	}

	kept := map[string]bool{}
	for _, b := range out {
		kept[b.Date] = true
	}
	for _, i := range nonZeroIdx {
		if !kept[series[i].Date] {
			t.Errorf("non-zero bucket %s missing from output", series[i].Date)
		}
	}

	if !sort.SliceIsSorted(out, func(i, j int) bool { return out[i].Date < out[j].Date }) {
		t.Error("output not sorted by date")
	}
}

func TestDownsample_NonZeroOverBudgetReturnedWhole(t *testing.T) {
	series := dailySeries(200)
	for i := 0; i < 150; i++ {
		series[i].Billings = float64(i + 1)
	}

	out := engine.Downsample(series, 60)

	// Correctness over strict ceilings: all 150 informative points stay.
	if len(out) != 150 {
		t.Errorf("expected 150 points, got %d", len(out))
	}
}

func TestDownsample_SeriesWithinBudgetUntouched(t *testing.T) {
	series := dailySeries(30)
	series[10].Receipts = 5

	out := engine.Downsample(series, 60)

	if len(out) != 30 {
		t.Errorf("expected all 30 points, got %d", len(out))
	}
	for i := range out {
		if out[i] != series[i] {
			t.Fatalf("point %d reordered or replaced", i)
		}
	}
}

func TestDownsample_BalanceOnlyBucketsAreZeroPoints(t *testing.T) {
	series := dailySeries(300)
	for _, b := range series {
		b.Balance = 5000 // flat carried balance, no movement
	}
	series[42].Unclassified = 1

	out := engine.Downsample(series, 10)

	found := false
	for _, b := range out {
		if b.Date == series[42].Date {
			found = true
		}
	}
	if !found {
		t.Error("unclassified movement bucket must survive downsampling")
	}
	if len(out) > 10+1 {
		t.Errorf("expected about 10 points, got %d", len(out))
	}
}

func TestDownsample_PropertyOutputBounds(t *testing.T) {
	for _, nonZero := range []int{0, 1, 59, 60, 200} {
		t.Run(fmt.Sprintf("nonzero_%d", nonZero), func(t *testing.T) {
			series := dailySeries(365)
			for i := 0; i < nonZero; i++ {
				series[i].Time = 1
			}

			out := engine.Downsample(series, 60)

			limit := 60
			if nonZero > limit {
				limit = nonZero
			}
			if len(out) > limit {
				t.Errorf("output %d exceeds max(target, nonZero)=%d", len(out), limit)
			}
		})
	}
}
