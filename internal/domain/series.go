package domain

// PeriodMetrics is one calendar bucket of a series: the movement totals
// that fell into the bucket plus the cumulative balance after them.
// Every numeric field is always present and finite — never null/NaN.
type PeriodMetrics struct {
	// Date is the canonical bucket start: "2006-01-02" for day
	// buckets, "2006-01" for month buckets. ISO ordering makes the
	// lexicographic and chronological orders coincide.
	Date string `json:"date"`

	Time             float64 `json:"time"`
	Disbursements    float64 `json:"disbursements"`
	Adjustments      float64 `json:"adjustments"`
	Billings         float64 `json:"billings"`
	Provisions       float64 `json:"provisions"`
	Fees             float64 `json:"fees"`
	Receipts         float64 `json:"receipts"`
	OtherNetBillings float64 `json:"otherNetBillings"`
	Unclassified     float64 `json:"unclassified"`

	// Balance is the cumulative family balance after this bucket's
	// movement. Written by the accumulator, never by the bucketer.
	Balance float64 `json:"balance"`

	// LockupDays is the trailing-12-month liquidity ratio for month
	// buckets when the caller requested lockup metrics; 0 otherwise.
	LockupDays float64 `json:"lockupDays"`
}

// Summary holds the per-dimension totals across all buckets of a
// series plus the final cumulative balance. Derived, never stored.
type Summary struct {
	TotalTime             float64 `json:"totalTime"`
	TotalDisbursements    float64 `json:"totalDisbursements"`
	TotalAdjustments      float64 `json:"totalAdjustments"`
	TotalBillings         float64 `json:"totalBillings"`
	TotalProvisions       float64 `json:"totalProvisions"`
	TotalFees             float64 `json:"totalFees"`
	TotalReceipts         float64 `json:"totalReceipts"`
	TotalOtherNetBillings float64 `json:"totalOtherNetBillings"`
	TotalUnclassified     float64 `json:"totalUnclassified"`

	// TotalMovement is the net balance change across the window,
	// equal to CurrentBalance minus the opening balance.
	TotalMovement  float64 `json:"totalMovement"`
	CurrentBalance float64 `json:"currentBalance"`
}

// SeriesResult pairs a bucket series with its summary.
type SeriesResult struct {
	Series  []*PeriodMetrics `json:"series"`
	Summary Summary          `json:"summary"`
}

// Category identifies one secondary-dimension value (service line)
// for legend/label purposes.
type Category struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// GraphResponse is the top-level, chart-ready result for one query.
// Cached as an immutable snapshot; callers must not mutate it.
type GraphResponse struct {
	RequestID   string                   `json:"requestId"`
	EntityKey   string                   `json:"entityKey"`
	Family      MetricFamily             `json:"family"`
	Granularity Granularity              `json:"granularity"`
	Resolution  Resolution               `json:"resolution"`
	StartDate   string                   `json:"startDate"`
	EndDate     string                   `json:"endDate"`
	Overall     *SeriesResult            `json:"overall"`
	ByCategory  map[string]*SeriesResult `json:"byCategory"`
	Categories  []Category               `json:"categories"`
}
