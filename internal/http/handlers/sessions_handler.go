package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"vehiclesense/internal/models"
	"vehiclesense/internal/repository"
	"vehiclesense/internal/service"
)

// SessionReader reads access sessions and runs the sweep.
type SessionReader interface {
	ListSessions(ctx context.Context, activeOnly bool, limit int) ([]models.AccessSession, error)
	CurrentSession(ctx context.Context, plate string) (*models.AccessSession, error)
	Sweep(ctx context.Context) (int, error)
}

// NewSessionsHandler returns GET /api/sessions handler.
func NewSessionsHandler(reader SessionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active_only"))
		limit := 500
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = parsed
		}

		sessions, err := reader.ListSessions(r.Context(), activeOnly, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch sessions")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
	}
}

// NewCurrentSessionHandler returns GET /api/sessions/current handler. It
// answers whether a plate is currently on premises.
func NewCurrentSessionHandler(reader SessionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := reader.CurrentSession(r.Context(), r.URL.Query().Get("plate"))
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
		case errors.Is(err, service.ErrEmptyPlate):
			writeError(w, http.StatusBadRequest, "plate is required")
		case errors.Is(err, repository.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "no active session for plate")
		default:
			writeError(w, http.StatusInternalServerError, "failed to fetch session")
		}
	}
}

// NewStatusHandler returns GET /api/status handler. Polling it drives the
// timeout sweep, so any dashboard refresh also reconciles stale sessions.
func NewStatusHandler(reader SessionReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		closed, err := reader.Sweep(r.Context())
		if err != nil {
			logger.Error("sweep failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "sweep failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "closed": closed})
	}
}
