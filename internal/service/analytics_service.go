package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/praxisfm/finengine/internal/domain"
	"github.com/praxisfm/finengine/internal/engine"
	"github.com/praxisfm/finengine/internal/infra/observability"
	"github.com/praxisfm/finengine/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/analytics")

const dayLayout = "2006-01-02"

// AnalyticsService is the facade over the computation engine: it
// validates queries, fetches ledger data, runs the bucketing/balance/
// lockup pipeline and caches the resulting graph snapshots.
type AnalyticsService struct {
	ledger  port.LedgerSource
	cache   port.SnapshotCache
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewAnalyticsService creates the analytics facade with all
// dependencies injected.
func NewAnalyticsService(
	ledger port.LedgerSource,
	cache port.SnapshotCache,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		ledger:  ledger,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// GetSeries returns the chart-ready graph for the query, from cache
// when possible. Identical queries against unchanged ledger data yield
// identical snapshots; a cache failure degrades to recomputation, a
// ledger failure is fatal for the request.
func (s *AnalyticsService) GetSeries(ctx context.Context, q domain.Query) (*domain.GraphResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "Analytics.GetSeries")
	defer span.End()
	span.SetAttributes(
		attribute.String("entity.key", q.EntityKey),
		attribute.String("metric.family", string(q.Family)),
	)

	if err := validateQuery(q); err != nil {
		s.metrics.IncrRequest("error")
		return nil, err
	}

	start := time.Now()
	defer func() {
		s.metrics.RecordGraphDuration(string(q.Family), time.Since(start))
	}()

	cacheKey := snapshotKey(q)
	if snap, ok, err := s.cache.Get(ctx, cacheKey); err != nil {
		// Cache trouble is never fatal; recompute instead.
		s.logger.Warn("snapshot cache read failed",
			zap.String("key", cacheKey),
			zap.Error(err),
		)
	} else if ok {
		s.metrics.IncrCacheHit("graph")
		s.metrics.IncrRequest("success")
		return snap, nil
	}
	s.metrics.IncrCacheMiss("graph")

	snap, err := s.build(ctx, q)
	if err != nil {
		s.metrics.IncrRequest("error")
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, snap); err != nil {
		s.logger.Warn("snapshot cache write failed",
			zap.String("key", cacheKey),
			zap.Error(err),
		)
	}

	s.metrics.IncrRequest("success")
	s.metrics.RecordSeriesPoints(string(q.Family), len(snap.Overall.Series))
	return snap, nil
}

// build computes one graph snapshot from scratch.
func (s *AnalyticsService) build(ctx context.Context, q domain.Query) (*domain.GraphResponse, error) {
	var (
		rows     []domain.TransactionRow
		openings map[string]float64
		lines    []domain.Category
	)

	// One ledger pass feeds both overall and per-category series.
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r, err := s.ledger.FetchRows(gCtx, q.EntityKey, q.From, q.To, q.Categories)
		if err != nil {
			s.logger.Error("failed to fetch ledger rows",
				zap.String("entity", q.EntityKey),
				zap.Error(err),
			)
			s.metrics.IncrLedgerError("fetch_rows")
			return err
		}
		rows = r
		return nil
	})

	g.Go(func() error {
		o, err := s.ledger.FetchOpeningBalances(gCtx, q.EntityKey, q.From, q.Family, q.Categories)
		if err != nil {
			s.logger.Error("failed to fetch opening balances",
				zap.String("entity", q.EntityKey),
				zap.Error(err),
			)
			s.metrics.IncrLedgerError("fetch_opening_balances")
			return err
		}
		openings = o
		return nil
	})

	g.Go(func() error {
		l, err := s.ledger.FetchServiceLines(gCtx)
		if err != nil {
			s.logger.Error("failed to fetch service lines", zap.Error(err))
			s.metrics.IncrLedgerError("fetch_service_lines")
			return err
		}
		lines = l
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	buckets := engine.BuildBuckets(rows, q.Granularity, q.From, q.To)

	// A category with an opening balance but no in-window rows still
	// needs a series, or the overall balance stops being the sum of
	// the per-category balances.
	opening := 0.0
	for key, value := range openings {
		opening += value
		buckets.EnsureCategory(key)
	}

	overall := finishSeries(buckets.Overall, opening, q)

	byCategory := make(map[string]*domain.SeriesResult, len(buckets.CategoryKeys))
	for _, key := range buckets.CategoryKeys {
		byCategory[key] = finishSeries(buckets.ByCategory[key], openings[key], q)
	}

	return &domain.GraphResponse{
		RequestID:   uuid.NewString(),
		EntityKey:   q.EntityKey,
		Family:      q.Family,
		Granularity: q.Granularity,
		Resolution:  q.Resolution,
		StartDate:   q.From.Format(dayLayout),
		EndDate:     q.To.Format(dayLayout),
		Overall:     overall,
		ByCategory:  byCategory,
		Categories:  labelCategories(buckets.CategoryKeys, lines),
	}, nil
}

// finishSeries runs accumulation, optional lockup, summary and
// downsampling over one series. The summary always reflects the full
// series, never the downsampled payload.
func finishSeries(series []*domain.PeriodMetrics, opening float64, q domain.Query) *domain.SeriesResult {
	engine.Accumulate(series, opening, q.Family)
	if q.IncludeLockup {
		engine.ApplyLockup(series, q.Family)
	}
	summary := engine.Summarize(series, opening, q.Family)

	return &domain.SeriesResult{
		Series:  engine.Downsample(series, q.Resolution.Points()),
		Summary: summary,
	}
}

// Invalidate evicts every cached snapshot for the entity. Called when
// ledger rows change upstream.
func (s *AnalyticsService) Invalidate(ctx context.Context, entityKey string) error {
	ctx, span := tracer.Start(ctx, "Analytics.Invalidate")
	defer span.End()

	if entityKey == "" {
		return &domain.ErrInvalidRange{Reason: "entity key is required"}
	}

	if err := s.cache.InvalidateEntity(ctx, entityKey); err != nil {
		return &domain.ErrCacheUnavailable{Err: err}
	}
	s.logger.Info("snapshots invalidated", zap.String("entity", entityKey))
	return nil
}

// Ping reports whether the ledger store is reachable.
func (s *AnalyticsService) Ping(ctx context.Context) error {
	return s.ledger.Ping(ctx)
}

// validateQuery rejects malformed queries before any ledger call.
func validateQuery(q domain.Query) error {
	if q.EntityKey == "" {
		return &domain.ErrInvalidRange{Reason: "entity key is required"}
	}
	if q.From.IsZero() || q.To.IsZero() {
		return &domain.ErrInvalidRange{Reason: "from and to dates are required"}
	}
	switch q.Family {
	case domain.FamilyWIP, domain.FamilyDebtors:
	default:
		return &domain.ErrInvalidRange{Reason: fmt.Sprintf("unknown metric family %q", q.Family)}
	}
	switch q.Granularity {
	case domain.GranularityDay, domain.GranularityMonth:
	default:
		return &domain.ErrInvalidRange{Reason: fmt.Sprintf("unknown granularity %q", q.Granularity)}
	}
	switch q.Resolution {
	case domain.ResolutionHigh, domain.ResolutionStandard, domain.ResolutionLow:
	default:
		return &domain.ErrInvalidRange{Reason: fmt.Sprintf("unknown resolution %q", q.Resolution)}
	}
	if q.IncludeLockup && q.Granularity != domain.GranularityMonth {
		return &domain.ErrInvalidRange{Reason: "lockup metrics require month granularity"}
	}
	return nil
}

// snapshotKey builds the canonical cache key for a query. Every query
// parameter participates; categories are sorted so equivalent filters
// share a key. The "graph:<entity>:" prefix is the invalidation handle.
func snapshotKey(q domain.Query) string {
	cats := append([]string(nil), q.Categories...)
	sort.Strings(cats)

	return fmt.Sprintf("graph:%s:%s:%s:%s:%s:%s:%s:%t",
		q.EntityKey,
		q.Family,
		q.Granularity,
		q.Resolution,
		q.From.Format(dayLayout),
		q.To.Format(dayLayout),
		strings.Join(cats, ","),
		q.IncludeLockup,
	)
}

// labelCategories resolves display labels for the observed category
// keys. Keys without a configured service line fall back to the key.
func labelCategories(keys []string, lines []domain.Category) []domain.Category {
	labels := make(map[string]string, len(lines))
	for _, l := range lines {
		labels[l.Key] = l.Label
	}

	out := make([]domain.Category, 0, len(keys))
	for _, key := range keys {
		label, ok := labels[key]
		if !ok {
			label = key
		}
		out = append(out, domain.Category{Key: key, Label: label})
	}
	return out
}
