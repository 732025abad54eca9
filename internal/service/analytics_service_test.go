package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/praxisfm/finengine/internal/domain"
	"github.com/praxisfm/finengine/internal/infra/cache"
	"github.com/praxisfm/finengine/internal/infra/observability"
	"github.com/praxisfm/finengine/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockLedger struct {
	rows      []domain.TransactionRow
	openings  map[string]float64
	lines     []domain.Category
	err       error
	fetchRows int
}

func (m *mockLedger) FetchRows(_ context.Context, _ string, _, _ time.Time, _ []string) ([]domain.TransactionRow, error) {
	m.fetchRows++
	return m.rows, m.err
}

func (m *mockLedger) FetchOpeningBalances(_ context.Context, _ string, _ time.Time, _ domain.MetricFamily, _ []string) (map[string]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.openings, nil
}

func (m *mockLedger) FetchServiceLines(_ context.Context) ([]domain.Category, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.lines, nil
}

func (m *mockLedger) Ping(_ context.Context) error {
	return m.err
}

// brokenCache fails every operation, simulating a dead backend.
type brokenCache struct{}

func (brokenCache) Get(_ context.Context, _ string) (*domain.GraphResponse, bool, error) {
	return nil, false, errors.New("cache backend down")
}

func (brokenCache) Set(_ context.Context, _ string, _ *domain.GraphResponse) error {
	return errors.New("cache backend down")
}

func (brokenCache) InvalidateEntity(_ context.Context, _ string) error {
	return errors.New("cache backend down")
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func baseQuery() domain.Query {
	return domain.Query{
		EntityKey:   "client-1",
		From:        day(2024, 1, 1),
		To:          day(2024, 3, 31),
		Family:      domain.FamilyWIP,
		Granularity: domain.GranularityMonth,
		Resolution:  domain.ResolutionStandard,
	}
}

// --- Tests ---

func TestGetSeries_Success(t *testing.T) {
	ledger := &mockLedger{
		rows: []domain.TransactionRow{
			{Date: day(2024, 1, 15), Category: "audit", Kind: domain.KindTime, Amount: 500},
			{Date: day(2024, 2, 3), Category: "audit", Kind: domain.KindBilling, Amount: 200},
		},
		openings: map[string]float64{"audit": 1000},
		lines:    []domain.Category{{Key: "audit", Label: "Audit & Assurance"}},
	}

	svc := service.NewAnalyticsService(
		ledger,
		cache.NewSnapshot(5*time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
	)

	resp, err := svc.GetSeries(context.Background(), baseQuery())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if resp.EntityKey != "client-1" {
		t.Errorf("expected entity 'client-1', got %q", resp.EntityKey)
	}
	if resp.RequestID == "" {
		t.Error("expected a request id")
	}
	if len(resp.Overall.Series) != 3 {
		t.Fatalf("expected 3 month buckets, got %d", len(resp.Overall.Series))
	}
	if got := resp.Overall.Summary.CurrentBalance; got != 1300 {
		t.Errorf("expected closing balance 1300, got %f", got)
	}
	if resp.Overall.Series[2].Balance != 1300 {
		t.Errorf("expected final bucket balance 1300, got %f", resp.Overall.Series[2].Balance)
	}
	if len(resp.Categories) != 1 || resp.Categories[0].Label != "Audit & Assurance" {
		t.Errorf("unexpected categories: %+v", resp.Categories)
	}
}

func TestGetSeries_OverallEqualsCategorySum(t *testing.T) {
	ledger := &mockLedger{
		rows: []domain.TransactionRow{
			{Date: day(2024, 1, 10), Category: "audit", Kind: domain.KindTime, Amount: 300},
			{Date: day(2024, 1, 20), Category: "tax", Kind: domain.KindTime, Amount: 200},
		},
		// The advisory line has history but no rows in the window.
		openings: map[string]float64{"audit": 100, "advisory": 50},
	}

	svc := service.NewAnalyticsService(
		ledger,
		cache.NewSnapshot(5*time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
	)

	resp, err := svc.GetSeries(context.Background(), baseQuery())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, ok := resp.ByCategory["advisory"]; !ok {
		t.Fatal("expected a series for the opening-only category")
	}

	for i, overall := range resp.Overall.Series {
		sum := 0.0
		for _, sr := range resp.ByCategory {
			sum += sr.Series[i].Balance
		}
		if overall.Balance != sum {
			t.Errorf("bucket %d: overall balance %f != category sum %f", i, overall.Balance, sum)
		}
	}
}

func TestGetSeries_CacheIdempotence(t *testing.T) {
	ledger := &mockLedger{
		rows: []domain.TransactionRow{
			{Date: day(2024, 1, 15), Kind: domain.KindTime, Amount: 500},
		},
		openings: map[string]float64{},
	}

	svc := service.NewAnalyticsService(
		ledger,
		cache.NewSnapshot(5*time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
	)

	first, err := svc.GetSeries(context.Background(), baseQuery())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := svc.GetSeries(context.Background(), baseQuery())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if ledger.fetchRows != 1 {
		t.Errorf("expected 1 ledger fetch, got %d", ledger.fetchRows)
	}
	if first.RequestID != second.RequestID {
		t.Error("expected the cached snapshot on the second call")
	}
}

func TestGetSeries_InvalidateForcesRecompute(t *testing.T) {
	ledger := &mockLedger{openings: map[string]float64{}}

	svc := service.NewAnalyticsService(
		ledger,
		cache.NewSnapshot(5*time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
	)

	if _, err := svc.GetSeries(context.Background(), baseQuery()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := svc.Invalidate(context.Background(), "client-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := svc.GetSeries(context.Background(), baseQuery()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if ledger.fetchRows != 2 {
		t.Errorf("expected 2 ledger fetches after invalidation, got %d", ledger.fetchRows)
	}
}

func TestGetSeries_BrokenCacheStillComputes(t *testing.T) {
	ledger := &mockLedger{
		rows: []domain.TransactionRow{
			{Date: day(2024, 1, 15), Kind: domain.KindTime, Amount: 500},
		},
		openings: map[string]float64{},
	}

	svc := service.NewAnalyticsService(
		ledger,
		brokenCache{},
		observability.NewMetrics(),
		zap.NewNop(),
	)

	resp, err := svc.GetSeries(context.Background(), baseQuery())
	if err != nil {
		t.Fatalf("expected cache failure to degrade, got %v", err)
	}
	if resp.Overall.Summary.TotalTime != 500 {
		t.Errorf("expected total time 500, got %f", resp.Overall.Summary.TotalTime)
	}
}

func TestGetSeries_LedgerErrorIsFatal(t *testing.T) {
	ledger := &mockLedger{err: errors.New("database is locked")}

	svc := service.NewAnalyticsService(
		ledger,
		cache.NewSnapshot(5*time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
	)

	_, err := svc.GetSeries(context.Background(), baseQuery())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestGetSeries_RejectsInvalidQueries(t *testing.T) {
	svc := service.NewAnalyticsService(
		&mockLedger{},
		cache.NewSnapshot(5*time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
	)

	cases := []struct {
		name   string
		mutate func(*domain.Query)
	}{
		{"missing entity", func(q *domain.Query) { q.EntityKey = "" }},
		{"missing dates", func(q *domain.Query) { q.From = time.Time{} }},
		{"bad family", func(q *domain.Query) { q.Family = "cashflow" }},
		{"bad granularity", func(q *domain.Query) { q.Granularity = "week" }},
		{"bad resolution", func(q *domain.Query) { q.Resolution = "ultra" }},
		{"lockup on day series", func(q *domain.Query) {
			q.Granularity = domain.GranularityDay
			q.IncludeLockup = true
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := baseQuery()
			tc.mutate(&q)

			_, err := svc.GetSeries(context.Background(), q)
			var invalid *domain.ErrInvalidRange
			if !errors.As(err, &invalid) {
				t.Fatalf("expected ErrInvalidRange, got %v", err)
			}
		})
	}
}

func TestGetSeries_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	svc := service.NewAnalyticsService(
		&mockLedger{},
		cache.NewSnapshot(5*time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
	)

	_, err := svc.GetSeries(ctx, baseQuery())
	if err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
}
