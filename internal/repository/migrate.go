package repository

import (
	"context"
	"database/sql"
)

// Schema statements are idempotent so they can run on every startup, mirroring
// the create-on-boot behavior the service has always had.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS owner_cache (
		id BIGSERIAL PRIMARY KEY,
		plate_number VARCHAR(64) NOT NULL UNIQUE,
		owner_name VARCHAR(256) NOT NULL DEFAULT '',
		vehicle_model VARCHAR(256) NOT NULL DEFAULT '',
		registration_date VARCHAR(64),
		raw_data TEXT NOT NULL DEFAULT '',
		last_checked TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS access_sessions (
		id BIGSERIAL PRIMARY KEY,
		plate_number VARCHAR(64) NOT NULL,
		entry_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		exit_time TIMESTAMPTZ,
		status VARCHAR(32) NOT NULL DEFAULT 'active',
		owner_id BIGINT REFERENCES owner_cache(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_access_sessions_plate ON access_sessions (plate_number)`,
	// One active session per plate. Concurrent inserts for the same plate
	// collapse into a touch via ON CONFLICT in OpenOrTouch.
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_session_plate
		ON access_sessions (plate_number) WHERE status = 'active'`,
	`CREATE TABLE IF NOT EXISTS detections (
		id BIGSERIAL PRIMARY KEY,
		session_id BIGINT REFERENCES access_sessions(id),
		timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		ocr_text VARCHAR(128) NOT NULL,
		detection_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		image_path VARCHAR(512) NOT NULL DEFAULT '',
		camera_id VARCHAR(128) NOT NULL DEFAULT 'cam0'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_detections_timestamp ON detections (timestamp)`,
	`CREATE TABLE IF NOT EXISTS residents (
		id BIGSERIAL PRIMARY KEY,
		plate_number VARCHAR(64) NOT NULL UNIQUE,
		resident_name VARCHAR(128) NOT NULL DEFAULT '',
		apartment_no VARCHAR(64) NOT NULL DEFAULT '',
		phone VARCHAR(32) NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT ''
	)`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
