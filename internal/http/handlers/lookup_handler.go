package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"vehiclesense/internal/models"
	"vehiclesense/internal/service"
)

// OwnerResolver resolves a normalized plate to ownership data.
type OwnerResolver interface {
	Resolve(ctx context.Context, plate string) (*models.OwnerRecord, error)
}

type lookupRequest struct {
	Plate string `json:"plate"`
}

// NewManualLookupHandler returns POST /api/manual_lookup handler. The plate
// comes from the query string or a JSON body.
func NewManualLookupHandler(resolver OwnerResolver, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("plate")
		if raw == "" {
			var req lookupRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
				raw = req.Plate
			}
		}

		plate := service.NormalizePlate(raw)
		if plate == "" {
			writeError(w, http.StatusBadRequest, "plate is required")
			return
		}

		owner, err := resolver.Resolve(r.Context(), plate)
		if err != nil {
			logger.Error("manual lookup failed", zap.String("plate", plate), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "lookup failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"plate": plate, "owner": owner.Info()})
	}
}
