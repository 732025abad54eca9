package handler

import (
	"net/http"
	"time"

	"github.com/praxisfm/finengine/internal/domain"
	"github.com/praxisfm/finengine/internal/infra/observability"
	"github.com/praxisfm/finengine/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// A non-empty jwtSecret puts the /v1 API behind bearer-token auth;
// operational endpoints are always open.
func NewRouter(svc *service.AnalyticsService, metrics *observability.Metrics, logger *zap.Logger, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if jwtSecret != "" {
			r.Use(JWTAuthMiddleware(jwtSecret, logger))
		}

		r.Route("/entities/{entityKey}", func(r chi.Router) {
			r.Get("/wip/graph", graphHandler(svc, domain.FamilyWIP, logger))
			r.Get("/debtors/graph", graphHandler(svc, domain.FamilyDebtors, logger))
			r.Delete("/graphs", invalidateHandler(svc, logger))
		})

		r.Get("/stats", statsHandler(metrics))
	})

	return r
}

// healthzHandler reports overall health including ledger store
// connectivity. A degraded store still answers 200 so load balancers
// keep routing to the cached snapshots.
func healthzHandler(svc *service.AnalyticsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		ledgerStatus := "healthy"
		start := time.Now()
		if err := svc.Ping(r.Context()); err != nil {
			ledgerStatus = "degraded"
		}
		latency := time.Since(start).Milliseconds()

		writeJSON(w, http.StatusOK, map[string]any{
			"status": ledgerStatus,
			"services": []map[string]any{
				{"name": "finengine-api", "status": "healthy", "latencyMs": 0, "lastChecked": now},
				{"name": "ledger-store", "status": ledgerStatus, "latencyMs": latency, "lastChecked": now},
			},
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// statsHandler serves the aggregate engine counters.
func statsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetStats())
	}
}
