package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"vehiclesense/internal/models"
	"vehiclesense/internal/repository"
	"vehiclesense/internal/service"
)

// ResidentDirectory is the plate-to-resident registry contract.
type ResidentDirectory interface {
	Create(ctx context.Context, resident *models.Resident) (*models.Resident, error)
	List(ctx context.Context) ([]models.Resident, error)
}

// ResidentsHandler serves the resident directory endpoints. The same listing
// also backs the /vehicles and /owners aliases, since a registered plate is
// the vehicle and the resident is its owner.
type ResidentsHandler struct {
	directory ResidentDirectory
	logger    *zap.Logger
}

// NewResidentsHandler builds handler set.
func NewResidentsHandler(directory ResidentDirectory, logger *zap.Logger) *ResidentsHandler {
	return &ResidentsHandler{
		directory: directory,
		logger:    logger,
	}
}

type residentRequest struct {
	PlateNumber  string `json:"plate_number"`
	ResidentName string `json:"resident_name"`
	ApartmentNo  string `json:"apartment_no"`
	Phone        string `json:"phone"`
	Notes        string `json:"notes"`
}

// HandleCreate handles POST /api/residents.
func (h *ResidentsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req residentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	plate := service.NormalizePlate(req.PlateNumber)
	if plate == "" {
		writeError(w, http.StatusBadRequest, "plate_number is required")
		return
	}

	resident, err := h.directory.Create(r.Context(), &models.Resident{
		PlateNumber:  plate,
		ResidentName: req.ResidentName,
		ApartmentNo:  req.ApartmentNo,
		Phone:        req.Phone,
		Notes:        req.Notes,
	})
	if errors.Is(err, repository.ErrResidentExists) {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "exists"})
		return
	}
	if err != nil {
		h.logger.Error("create resident failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create resident")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "id": resident.ID})
}

// HandleList handles GET /api/residents (and its aliases).
func (h *ResidentsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	residents, err := h.directory.List(r.Context())
	if err != nil {
		h.logger.Error("list residents failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch residents")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"residents": residents})
}
