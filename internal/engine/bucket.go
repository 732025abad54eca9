// Package engine holds the pure computation core: calendar bucketing,
// running-balance accumulation, lockup ratios, and display downsampling.
// Everything here operates on private per-request copies and is safe to
// run without locking.
package engine

import (
	"sort"
	"time"

	"github.com/praxisfm/finengine/internal/domain"
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// BucketSet is the result of one bucketing pass: the overall series
// plus one series per observed category, all zero-filled over the same
// chronological bucket sequence.
type BucketSet struct {
	Overall    []*domain.PeriodMetrics
	ByCategory map[string][]*domain.PeriodMetrics

	// CategoryKeys is the distinct set of category keys observed,
	// sorted for deterministic output.
	CategoryKeys []string

	granularity domain.Granularity
	starts      []time.Time
	index       map[string]int
}

// BuildBuckets folds rows into calendar buckets at the given
// granularity over the inclusive [from, to] range. Each row is folded
// into both the overall series and its category's series in the same
// pass. Rows dated outside the range are excluded defensively even if
// the source was asked to respect it. A from after to yields an empty
// set, not an error.
func BuildBuckets(rows []domain.TransactionRow, g domain.Granularity, from, to time.Time) *BucketSet {
	bs := &BucketSet{
		ByCategory:  map[string][]*domain.PeriodMetrics{},
		granularity: g,
		index:       map[string]int{},
	}

	from = dateOnly(from)
	to = dateOnly(to)
	if from.After(to) {
		return bs
	}

	for cursor := bucketStart(from, g); !cursor.After(to); cursor = nextBucket(cursor, g) {
		bs.index[bucketLabel(cursor, g)] = len(bs.starts)
		bs.starts = append(bs.starts, cursor)
	}
	bs.Overall = bs.zeroSeries()

	for _, row := range rows {
		d := dateOnly(row.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		idx, ok := bs.index[bucketLabel(d, g)]
		if !ok {
			continue
		}

		amount := domain.SafeNum(row.Amount)
		apply(bs.Overall[idx], row.Kind, amount)
		apply(bs.categorySeries(categoryKey(row.Category))[idx], row.Kind, amount)
	}

	sort.Strings(bs.CategoryKeys)
	return bs
}

// EnsureCategory creates a zero-filled series for a category that has
// an opening balance but no rows inside the window, so that the overall
// balance still equals the sum of the per-category balances.
func (bs *BucketSet) EnsureCategory(key string) {
	if len(bs.starts) == 0 {
		return
	}
	bs.categorySeries(categoryKey(key))
	sort.Strings(bs.CategoryKeys)
}

func (bs *BucketSet) categorySeries(key string) []*domain.PeriodMetrics {
	if s, ok := bs.ByCategory[key]; ok {
		return s
	}
	s := bs.zeroSeries()
	bs.ByCategory[key] = s
	bs.CategoryKeys = append(bs.CategoryKeys, key)
	return s
}

func (bs *BucketSet) zeroSeries() []*domain.PeriodMetrics {
	s := make([]*domain.PeriodMetrics, len(bs.starts))
	for i, start := range bs.starts {
		s[i] = &domain.PeriodMetrics{Date: bucketLabel(start, bs.granularity)}
	}
	return s
}

func apply(b *domain.PeriodMetrics, kind domain.MovementKind, amount float64) {
	switch kind {
	case domain.KindTime:
		b.Time += amount
	case domain.KindDisbursement:
		b.Disbursements += amount
	case domain.KindAdjustment:
		b.Adjustments += amount
	case domain.KindBilling:
		b.Billings += amount
	case domain.KindProvision:
		b.Provisions += amount
	case domain.KindFee:
		b.Fees += amount
	case domain.KindReceipt:
		b.Receipts += amount
	case domain.KindOtherNetBilling:
		b.OtherNetBillings += amount
	default:
		// Unknown movement types are counted, never dropped.
		b.Unclassified += amount
	}
}

func categoryKey(raw string) string {
	if raw == "" {
		return domain.UncategorizedKey
	}
	return raw
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func bucketStart(t time.Time, g domain.Granularity) time.Time {
	if g == domain.GranularityMonth {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return dateOnly(t)
}

func nextBucket(t time.Time, g domain.Granularity) time.Time {
	if g == domain.GranularityMonth {
		return t.AddDate(0, 1, 0)
	}
	return t.AddDate(0, 0, 1)
}

func bucketLabel(t time.Time, g domain.Granularity) string {
	if g == domain.GranularityMonth {
		return t.Format(monthLayout)
	}
	return t.Format(dayLayout)
}
