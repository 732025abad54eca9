package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/praxisfm/finengine/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var invalidRange *domain.ErrInvalidRange
	var circuitOpen *domain.ErrCircuitOpen
	var dataSource *domain.ErrDataSource
	var cacheDown *domain.ErrCacheUnavailable
	var unauthorized *domain.ErrUnauthorized

	switch {
	case errors.As(err, &invalidRange):
		logger.Debug("invalid query", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &dataSource):
		logger.Error("ledger source error", zap.Error(err))
		writeError(w, http.StatusBadGateway, "ledger store unavailable")
	case errors.As(err, &cacheDown):
		logger.Error("snapshot cache error", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
