package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/praxisfm/finengine/internal/domain"
	"github.com/praxisfm/finengine/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const dayLayout = "2006-01-02"

// graphHandler serves GET /v1/entities/{entityKey}/{family}/graph for
// one metric family.
func graphHandler(svc *service.AnalyticsService, family domain.MetricFamily, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), fmt.Sprintf("GET /v1/entities/{entityKey}/%s/graph", family))
		defer span.End()

		q, err := parseGraphQuery(r, family)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("entity.key", q.EntityKey))

		resp, err := svc.GetSeries(ctx, q)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// invalidateHandler serves DELETE /v1/entities/{entityKey}/graphs.
// Upstream ledger imports call it after writing new rows.
func invalidateHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/entities/{entityKey}/graphs")
		defer span.End()

		entityKey := chi.URLParam(r, "entityKey")
		if entityKey == "" {
			writeError(w, http.StatusBadRequest, "entity key is required")
			return
		}
		span.SetAttributes(attribute.String("entity.key", entityKey))

		if err := svc.Invalidate(ctx, entityKey); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// parseGraphQuery builds a domain.Query from URL and query params.
// Validation beyond shape (date formats, booleans) belongs to the
// service, which owns the query rules.
func parseGraphQuery(r *http.Request, family domain.MetricFamily) (domain.Query, error) {
	q := domain.Query{
		EntityKey:   chi.URLParam(r, "entityKey"),
		Family:      family,
		Granularity: domain.GranularityMonth,
		Resolution:  domain.ResolutionStandard,
	}

	params := r.URL.Query()

	from, err := parseDay(params.Get("from"), "from")
	if err != nil {
		return q, err
	}
	to, err := parseDay(params.Get("to"), "to")
	if err != nil {
		return q, err
	}
	q.From, q.To = from, to

	if v := params.Get("granularity"); v != "" {
		q.Granularity = domain.Granularity(v)
	}
	if v := params.Get("resolution"); v != "" {
		q.Resolution = domain.Resolution(v)
	}
	if v := params.Get("categories"); v != "" {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				q.Categories = append(q.Categories, c)
			}
		}
	}

	// Lockup defaults on for monthly series; day series cannot carry it.
	q.IncludeLockup = q.Granularity == domain.GranularityMonth
	if v := params.Get("lockup"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return q, &domain.ErrInvalidRange{Reason: fmt.Sprintf("invalid lockup flag %q", v)}
		}
		q.IncludeLockup = b
	}

	return q, nil
}

func parseDay(value, name string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &domain.ErrInvalidRange{Reason: fmt.Sprintf("%s date is required", name)}
	}
	t, err := time.Parse(dayLayout, value)
	if err != nil {
		return time.Time{}, &domain.ErrInvalidRange{Reason: fmt.Sprintf("invalid %s date %q, want YYYY-MM-DD", name, value)}
	}
	return t, nil
}
