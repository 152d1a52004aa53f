package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"vehiclesense/internal/models"
	"vehiclesense/internal/service"
)

const maxUploadBytes = 10 << 20

// DetectionProcessor is the slice of the lifecycle manager the ingest
// gateway needs.
type DetectionProcessor interface {
	ProcessDetection(ctx context.Context, input service.DetectionInput) (*service.DetectionResult, error)
	Sweep(ctx context.Context) (int, error)
}

// DetectionReader lists recorded detections.
type DetectionReader interface {
	ListDetections(ctx context.Context, limit int) ([]models.Detection, error)
}

// DetectionsHandler is the ingest gateway's HTTP surface.
type DetectionsHandler struct {
	processor DetectionProcessor
	logger    *zap.Logger
}

// NewDetectionsHandler builds handler set.
func NewDetectionsHandler(processor DetectionProcessor, logger *zap.Logger) *DetectionsHandler {
	return &DetectionsHandler{
		processor: processor,
		logger:    logger,
	}
}

type detectionRequest struct {
	OCRText    string  `json:"ocr_text"`
	Confidence float64 `json:"confidence"`
	CameraID   string  `json:"camera_id"`
	ImagePath  string  `json:"image_path"`
}

// HandleSubmit handles POST /api/detections: a JSON detection event whose
// crop, if any, was already stored by the client. Stale sessions are swept
// before the event is applied.
func (h *DetectionsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req detectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if _, err := h.processor.Sweep(r.Context()); err != nil {
		h.logger.Warn("sweep before ingest failed", zap.Error(err))
	}

	result, err := h.processor.ProcessDetection(r.Context(), service.DetectionInput{
		PlateText:  req.OCRText,
		Confidence: req.Confidence,
		CameraID:   req.CameraID,
		ImagePath:  req.ImagePath,
	})
	if err != nil {
		h.writeProcessingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "result": result})
}

// HandleUpload handles POST /api/detections/upload: multipart form with the
// crop image under "file" plus ocr_text, confidence and camera_id fields.
func (h *DetectionsHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	confidence := 0.6
	if raw := r.FormValue("confidence"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid confidence")
			return
		}
		confidence = parsed
	}

	result, err := h.processor.ProcessDetection(r.Context(), service.DetectionInput{
		PlateText:  r.FormValue("ocr_text"),
		Confidence: confidence,
		Image:      image,
		CameraID:   r.FormValue("camera_id"),
	})
	if err != nil {
		h.writeProcessingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "result": result})
}

func (h *DetectionsHandler) writeProcessingError(w http.ResponseWriter, err error) {
	var procErr *service.ProcessingError
	switch {
	case errors.Is(err, service.ErrEmptyPlate):
		writeError(w, http.StatusBadRequest, "plate text is empty")
	case errors.As(err, &procErr):
		h.logger.Error("detection processing failed",
			zap.String("step", procErr.Step),
			zap.Error(procErr.Err))
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("detection processing failed at %s", procErr.Step))
	default:
		h.logger.Error("detection processing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to process detection")
	}
}

// NewDetectionsListHandler returns GET /api/detections handler.
func NewDetectionsListHandler(reader DetectionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 100
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = parsed
		}
		detections, err := reader.ListDetections(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch detections")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"detections": detections})
	}
}
