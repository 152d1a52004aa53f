package models

import "time"

// Detection is a single observed plate-recognition event. Rows are append-only.
type Detection struct {
	ID         int64     `db:"id" json:"id"`
	SessionID  *int64    `db:"session_id" json:"session_id"`
	Timestamp  time.Time `db:"timestamp" json:"timestamp"`
	OCRText    string    `db:"ocr_text" json:"ocr_text"`
	Confidence float64   `db:"detection_confidence" json:"confidence"`
	ImagePath  string    `db:"image_path" json:"image_path"`
	CameraID   string    `db:"camera_id" json:"camera_id"`
}
