package domain

import (
	"math"
	"time"
)

// MovementKind is the closed set of ledger movement types the engine
// understands. Rows with any other kind are folded into the explicit
// unclassified field of their bucket rather than being dropped.
type MovementKind string

const (
	KindTime            MovementKind = "time"
	KindDisbursement    MovementKind = "disbursement"
	KindAdjustment      MovementKind = "adjustment"
	KindBilling         MovementKind = "billing"
	KindProvision       MovementKind = "provision"
	KindFee             MovementKind = "fee"
	KindReceipt         MovementKind = "receipt"
	KindOtherNetBilling MovementKind = "other_net_billing"
	KindUnclassified    MovementKind = "unclassified"
)

// ParseMovementKind maps a raw kind string onto the closed enum.
// Unknown values resolve to KindUnclassified so new ledger movement
// types fail loud instead of being silently miscategorized.
func ParseMovementKind(s string) MovementKind {
	switch MovementKind(s) {
	case KindTime, KindDisbursement, KindAdjustment, KindBilling,
		KindProvision, KindFee, KindReceipt, KindOtherNetBilling:
		return MovementKind(s)
	}
	return KindUnclassified
}

// UncategorizedKey is the category key assigned to rows whose
// secondary dimension (service line) is missing.
const UncategorizedKey = "uncategorized"

// TransactionRow is one raw ledger entry as returned by the ledger
// source. Immutable; the engine never writes it back.
type TransactionRow struct {
	Date      time.Time    `json:"date"`
	EntityKey string       `json:"entityKey"`
	Category  string       `json:"category"`
	Kind      MovementKind `json:"kind"`
	Amount    float64      `json:"amount"`
}

// MetricFamily selects which balance is being tracked.
type MetricFamily string

const (
	FamilyWIP     MetricFamily = "wip"
	FamilyDebtors MetricFamily = "debtors"
)

// Granularity is the calendar bucket size of a series.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
)

// Resolution maps to a downsample point budget for display payloads.
type Resolution string

const (
	ResolutionHigh     Resolution = "high"
	ResolutionStandard Resolution = "standard"
	ResolutionLow      Resolution = "low"
)

// Points returns the downsample target for the resolution.
func (r Resolution) Points() int {
	switch r {
	case ResolutionHigh:
		return 365
	case ResolutionLow:
		return 60
	default:
		return 120
	}
}

// Query is the full parameter set for one graph request. Every field
// participates in the cache key.
type Query struct {
	EntityKey     string
	From          time.Time
	To            time.Time
	Family        MetricFamily
	Granularity   Granularity
	Resolution    Resolution
	Categories    []string
	IncludeLockup bool
}

// SafeNum normalizes a raw numeric value at the boundary where external
// rows enter the engine. NaN and ±Inf read as 0 so that internal
// arithmetic can assume fully-populated finite records.
func SafeNum(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
