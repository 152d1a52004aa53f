package repository

import (
	"context"
	"database/sql"
	"errors"

	"vehiclesense/internal/models"
)

// ErrOwnerNotFound indicates no cached owner for the plate.
var ErrOwnerNotFound = errors.New("owner record not found")

// OwnerCacheRepository stores resolved plate ownership.
type OwnerCacheRepository struct {
	db *sql.DB
}

// NewOwnerCacheRepository returns repository.
func NewOwnerCacheRepository(db *sql.DB) *OwnerCacheRepository {
	return &OwnerCacheRepository{db: db}
}

// FindByPlate returns the cached record for a plate.
func (r *OwnerCacheRepository) FindByPlate(ctx context.Context, plate string) (*models.OwnerRecord, error) {
	const query = `
		SELECT id, plate_number, owner_name, vehicle_model, registration_date, raw_data, last_checked
		FROM owner_cache
		WHERE plate_number = $1
	`
	var rec models.OwnerRecord
	err := r.db.QueryRowContext(ctx, query, plate).Scan(
		&rec.ID,
		&rec.PlateNumber,
		&rec.OwnerName,
		&rec.VehicleModel,
		&rec.RegistrationDate,
		&rec.RawData,
		&rec.LastChecked,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOwnerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Upsert persists a resolution result. The unique plate constraint collapses
// concurrent first-time resolutions into a single row.
func (r *OwnerCacheRepository) Upsert(ctx context.Context, rec *models.OwnerRecord) (*models.OwnerRecord, error) {
	const query = `
		INSERT INTO owner_cache (plate_number, owner_name, vehicle_model, registration_date, raw_data, last_checked)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (plate_number) DO UPDATE SET
			owner_name = EXCLUDED.owner_name,
			vehicle_model = EXCLUDED.vehicle_model,
			registration_date = EXCLUDED.registration_date,
			raw_data = EXCLUDED.raw_data,
			last_checked = EXCLUDED.last_checked
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		rec.PlateNumber,
		rec.OwnerName,
		rec.VehicleModel,
		rec.RegistrationDate,
		rec.RawData,
		rec.LastChecked.UTC(),
	).Scan(&rec.ID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
