package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/praxisfm/finengine/internal/domain"
	"github.com/praxisfm/finengine/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("sqlite")

const dayLayout = "2006-01-02"

// categoryExpr folds empty/NULL service line values into the shared
// uncategorized key so SQL grouping matches the engine's bucketing.
const categoryExpr = "COALESCE(NULLIF(category, ''), 'uncategorized')"

// LedgerStore implements port.LedgerSource against the SQLite
// transaction store. Queries run under the bulkhead, retry policy and
// circuit breaker; callers see typed domain errors only.
type LedgerStore struct {
	db       *sql.DB
	cb       *gobreaker.CircuitBreaker
	bulkhead *resilience.Bulkhead
	cfg      resilience.Config
	logger   *zap.Logger
}

// NewLedgerStore creates a ledger store.
func NewLedgerStore(db *sql.DB, cb *gobreaker.CircuitBreaker, bulkhead *resilience.Bulkhead, cfg resilience.Config, logger *zap.Logger) *LedgerStore {
	return &LedgerStore{
		db:       db,
		cb:       cb,
		bulkhead: bulkhead,
		cfg:      cfg,
		logger:   logger,
	}
}

// execute wraps a query in bulkhead -> breaker -> retry and maps
// transport failures onto domain errors.
func (s *LedgerStore) execute(ctx context.Context, op string, fn func() error) error {
	if err := s.bulkhead.Acquire(ctx); err != nil {
		return &domain.ErrDataSource{Op: op, Err: err}
	}
	defer s.bulkhead.Release()

	_, err := s.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, s.cfg, fn)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			s.logger.Warn("sqlite: circuit breaker rejected query",
				zap.String("op", op),
			)
			return &domain.ErrCircuitOpen{Service: "sqlite/" + op}
		}
		s.logger.Error("sqlite: query failed",
			zap.String("op", op),
			zap.Error(err),
		)
		return &domain.ErrDataSource{Op: op, Err: err}
	}
	return nil
}

// FetchRows returns every ledger row for the entity inside the
// inclusive [from, to] day range, ordered by date ascending.
func (s *LedgerStore) FetchRows(ctx context.Context, entityKey string, from, to time.Time, categories []string) ([]domain.TransactionRow, error) {
	ctx, span := tracer.Start(ctx, "LedgerStore.FetchRows")
	defer span.End()
	span.SetAttributes(attribute.String("entity.key", entityKey))

	query := fmt.Sprintf(`SELECT entry_date, entity_key, %s, kind, amount
FROM ledger_entries
WHERE entity_key = ? AND entry_date >= ? AND entry_date <= ?`, categoryExpr)
	args := []any{entityKey, from.Format(dayLayout), to.Format(dayLayout)}
	query, args = appendCategoryFilter(query, args, categories)
	query += " ORDER BY entry_date ASC"

	var rows []domain.TransactionRow
	err := s.execute(ctx, "fetch_rows", func() error {
		rows = rows[:0]

		result, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer result.Close()

		for result.Next() {
			var (
				date     string
				entity   string
				category string
				kind     string
				amount   sql.NullFloat64
			)
			if err := result.Scan(&date, &entity, &category, &kind, &amount); err != nil {
				return fmt.Errorf("scan ledger row: %w", err)
			}

			d, err := time.Parse(dayLayout, date)
			if err != nil {
				return fmt.Errorf("parse entry date %q: %w", date, err)
			}

			rows = append(rows, domain.TransactionRow{
				Date:      d,
				EntityKey: entity,
				Category:  category,
				Kind:      domain.ParseMovementKind(kind),
				Amount:    domain.SafeNum(amount.Float64),
			})
		}
		return result.Err()
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("sqlite: fetched ledger rows",
		zap.String("entity", entityKey),
		zap.Int("count", len(rows)),
	)
	return rows, nil
}

// FetchOpeningBalances sums all movements strictly before asOf into a
// per-category balance, using the movement formula for the family.
func (s *LedgerStore) FetchOpeningBalances(ctx context.Context, entityKey string, asOf time.Time, family domain.MetricFamily, categories []string) (map[string]float64, error) {
	ctx, span := tracer.Start(ctx, "LedgerStore.FetchOpeningBalances")
	defer span.End()
	span.SetAttributes(
		attribute.String("entity.key", entityKey),
		attribute.String("metric.family", string(family)),
	)

	query := fmt.Sprintf(`SELECT %s AS cat, COALESCE(SUM(%s), 0)
FROM ledger_entries
WHERE entity_key = ? AND entry_date < ?`, categoryExpr, movementExpr(family))
	args := []any{entityKey, asOf.Format(dayLayout)}
	query, args = appendCategoryFilter(query, args, categories)
	query += " GROUP BY cat"

	balances := make(map[string]float64)
	err := s.execute(ctx, "fetch_opening_balances", func() error {
		clear(balances)

		result, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer result.Close()

		for result.Next() {
			var (
				category string
				balance  sql.NullFloat64
			)
			if err := result.Scan(&category, &balance); err != nil {
				return fmt.Errorf("scan opening balance: %w", err)
			}
			balances[category] = domain.SafeNum(balance.Float64)
		}
		return result.Err()
	})
	if err != nil {
		return nil, err
	}
	return balances, nil
}

// FetchServiceLines returns the configured category key/label pairs.
func (s *LedgerStore) FetchServiceLines(ctx context.Context) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "LedgerStore.FetchServiceLines")
	defer span.End()

	var lines []domain.Category
	err := s.execute(ctx, "fetch_service_lines", func() error {
		lines = lines[:0]

		result, err := s.db.QueryContext(ctx, "SELECT key, label FROM service_lines ORDER BY key ASC")
		if err != nil {
			return err
		}
		defer result.Close()

		for result.Next() {
			var c domain.Category
			if err := result.Scan(&c.Key, &c.Label); err != nil {
				return fmt.Errorf("scan service line: %w", err)
			}
			lines = append(lines, c)
		}
		return result.Err()
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// Ping verifies connectivity to the transaction store.
func (s *LedgerStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &domain.ErrDataSource{Op: "ping", Err: err}
	}
	return nil
}

// movementExpr returns the signed SUM expression that turns raw ledger
// amounts into a balance movement for the family. Unknown kinds
// contribute nothing to openings.
func movementExpr(family domain.MetricFamily) string {
	if family == domain.FamilyDebtors {
		return `CASE kind
WHEN 'billing' THEN amount
WHEN 'fee' THEN amount
WHEN 'other_net_billing' THEN amount
WHEN 'receipt' THEN -amount
ELSE 0 END`
	}
	return `CASE kind
WHEN 'time' THEN amount
WHEN 'disbursement' THEN amount
WHEN 'adjustment' THEN amount
WHEN 'provision' THEN amount
WHEN 'billing' THEN -amount
ELSE 0 END`
}

// appendCategoryFilter adds an IN clause over the normalized category
// expression when the caller restricts categories.
func appendCategoryFilter(query string, args []any, categories []string) (string, []any) {
	if len(categories) == 0 {
		return query, args
	}
	placeholders := make([]string, len(categories))
	for i, c := range categories {
		placeholders[i] = "?"
		args = append(args, c)
	}
	query += fmt.Sprintf(" AND %s IN (%s)", categoryExpr, strings.Join(placeholders, ", "))
	return query, args
}
