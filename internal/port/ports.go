// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/praxisfm/finengine/internal/domain"
)

// LedgerSource issues parameterized aggregate queries against the
// underlying transaction store. Implementations own their own transport
// resilience (retry/backoff, breaker); the engine does not retry.
type LedgerSource interface {
	// FetchRows returns every ledger row for the entity inside the
	// inclusive [from, to] day range, sorted by date ascending.
	// An empty categories slice means no category filter.
	FetchRows(ctx context.Context, entityKey string, from, to time.Time, categories []string) ([]domain.TransactionRow, error)

	// FetchOpeningBalances returns the balance carried forward from
	// before asOf, per category key (overall opening = sum of values).
	// The family selects which movement formula is applied to the
	// pre-window rows.
	FetchOpeningBalances(ctx context.Context, entityKey string, asOf time.Time, family domain.MetricFamily, categories []string) (map[string]float64, error)

	// FetchServiceLines returns the known category key/label pairs
	// used to label per-category series.
	FetchServiceLines(ctx context.Context) ([]domain.Category, error)

	// Ping verifies connectivity to the transaction store.
	Ping(ctx context.Context) error
}

// SnapshotCache is the injected key→snapshot store for computed graph
// responses. Writes are idempotent; duplicate concurrent computation
// for a cold key is an accepted, bounded cost. Implementations must
// treat snapshots as immutable values.
//
// Keys are produced by the facade in the form "graph:<entityKey>:...",
// which InvalidateEntity relies on to evict an entity's snapshots.
type SnapshotCache interface {
	Get(ctx context.Context, key string) (*domain.GraphResponse, bool, error)
	Set(ctx context.Context, key string, value *domain.GraphResponse) error
	InvalidateEntity(ctx context.Context, entityKey string) error
}
