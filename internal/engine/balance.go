package engine

import "github.com/praxisfm/finengine/internal/domain"

// Movement returns the net period movement of one bucket for the given
// metric family.
//
// WIP:     Time + Disbursements + Adjustments + Provisions − Billings
// Debtors: NetBillings − Receipts
//
// Fees and Receipts never enter the WIP movement; the Debtors side uses
// its own opening balance.
func Movement(b *domain.PeriodMetrics, family domain.MetricFamily) float64 {
	if family == domain.FamilyDebtors {
		return NetBillings(b) - b.Receipts
	}
	return b.Time + b.Disbursements + b.Adjustments + b.Provisions - b.Billings
}

// NetBillings is the billing-side total of a bucket: everything that
// moves value from WIP into the debtors ledger.
func NetBillings(b *domain.PeriodMetrics) float64 {
	return b.Billings + b.Fees + b.OtherNetBillings
}

// Accumulate walks the chronologically ordered series, maintaining a
// running balance seeded with the opening balance, and writes the
// post-movement balance into each bucket:
//
//	balance[i] = balance[i-1] + movement[i], balance[-1] = opening
//
// It must run before any downsampling; downsampled input would corrupt
// the running total.
func Accumulate(series []*domain.PeriodMetrics, opening float64, family domain.MetricFamily) {
	running := domain.SafeNum(opening)
	for _, b := range series {
		running += Movement(b, family)
		b.Balance = running
	}
}

// Summarize sums each movement field across all buckets and captures
// the final running balance. For an empty series the balance is the
// opening balance itself.
func Summarize(series []*domain.PeriodMetrics, opening float64, family domain.MetricFamily) domain.Summary {
	s := domain.Summary{CurrentBalance: domain.SafeNum(opening)}
	for _, b := range series {
		s.TotalTime += b.Time
		s.TotalDisbursements += b.Disbursements
		s.TotalAdjustments += b.Adjustments
		s.TotalBillings += b.Billings
		s.TotalProvisions += b.Provisions
		s.TotalFees += b.Fees
		s.TotalReceipts += b.Receipts
		s.TotalOtherNetBillings += b.OtherNetBillings
		s.TotalUnclassified += b.Unclassified
		s.TotalMovement += Movement(b, family)
		s.CurrentBalance = b.Balance
	}
	return s
}
