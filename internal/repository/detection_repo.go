package repository

import (
	"context"
	"database/sql"

	"vehiclesense/internal/models"
)

// DetectionRepository stores plate-recognition events. Rows are append-only;
// nothing here mutates or deletes them.
type DetectionRepository struct {
	db *sql.DB
}

// NewDetectionRepository returns repository.
func NewDetectionRepository(db *sql.DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// Append inserts one detection row and fills in the assigned id.
func (r *DetectionRepository) Append(ctx context.Context, detection *models.Detection) (*models.Detection, error) {
	const query = `
		INSERT INTO detections (session_id, timestamp, ocr_text, detection_confidence, image_path, camera_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		detection.SessionID,
		detection.Timestamp.UTC(),
		detection.OCRText,
		detection.Confidence,
		detection.ImagePath,
		detection.CameraID,
	).Scan(&detection.ID)
	if err != nil {
		return nil, err
	}
	return detection, nil
}

// List returns last N detections, most recent first.
func (r *DetectionRepository) List(ctx context.Context, limit int) ([]models.Detection, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	const query = `
		SELECT id, session_id, timestamp, ocr_text, detection_confidence, image_path, camera_id
		FROM detections
		ORDER BY timestamp DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var detections []models.Detection
	for rows.Next() {
		var d models.Detection
		if err := rows.Scan(
			&d.ID,
			&d.SessionID,
			&d.Timestamp,
			&d.OCRText,
			&d.Confidence,
			&d.ImagePath,
			&d.CameraID,
		); err != nil {
			return nil, err
		}
		detections = append(detections, d)
	}
	return detections, rows.Err()
}
