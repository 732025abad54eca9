package engine

import (
	"sort"

	"github.com/praxisfm/finengine/internal/domain"
)

// Downsample bounds the number of points in a series for transport and
// rendering. Every bucket with at least one non-zero movement field is
// always kept; the remaining budget is filled by striding evenly
// through the zero buckets. When the non-zero points alone exceed the
// target they are all returned — correctness over a strict point-count
// ceiling. The result is a new slice, re-sorted by bucket date.
//
// Display-only: callers must downsample a copy of an accumulated
// series, never the accumulator's input.
func Downsample(series []*domain.PeriodMetrics, target int) []*domain.PeriodMetrics {
	if target <= 0 || len(series) <= target {
		out := make([]*domain.PeriodMetrics, len(series))
		copy(out, series)
		return out
	}

	var nonZero, zero []*domain.PeriodMetrics
	for _, b := range series {
		if hasMovement(b) {
			nonZero = append(nonZero, b)
		} else {
			zero = append(zero, b)
		}
	}

	out := nonZero
	if remaining := target - len(nonZero); remaining > 0 && len(zero) > 0 {
		step := (len(zero) + remaining - 1) / remaining
		for i := 0; i < len(zero); i += step {
			out = append(out, zero[i])
		}
	}

	// The partition/recombine step does not preserve order.
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// hasMovement reports whether any tracked movement field of the bucket
// is non-zero. The cumulative balance and lockup ratio deliberately do
// not count: a flat balance carries through zero buckets.
func hasMovement(b *domain.PeriodMetrics) bool {
	return b.Time != 0 ||
		b.Disbursements != 0 ||
		b.Adjustments != 0 ||
		b.Billings != 0 ||
		b.Provisions != 0 ||
		b.Fees != 0 ||
		b.Receipts != 0 ||
		b.OtherNetBillings != 0 ||
		b.Unclassified != 0
}
