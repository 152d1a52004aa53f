package repository

import (
	"context"
	"database/sql"
	"errors"

	"vehiclesense/internal/models"
)

// ErrResidentExists indicates the plate is already registered.
var ErrResidentExists = errors.New("resident already registered for plate")

// ResidentRepository stores the plate-to-resident directory.
type ResidentRepository struct {
	db *sql.DB
}

// NewResidentRepository returns repository.
func NewResidentRepository(db *sql.DB) *ResidentRepository {
	return &ResidentRepository{db: db}
}

// Create registers a resident. Registering an already-known plate fails with
// ErrResidentExists rather than overwriting.
func (r *ResidentRepository) Create(ctx context.Context, resident *models.Resident) (*models.Resident, error) {
	const query = `
		INSERT INTO residents (plate_number, resident_name, apartment_no, phone, notes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (plate_number) DO NOTHING
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		resident.PlateNumber,
		resident.ResidentName,
		resident.ApartmentNo,
		resident.Phone,
		resident.Notes,
	).Scan(&resident.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResidentExists
	}
	if err != nil {
		return nil, err
	}
	return resident, nil
}

// List returns all registered residents.
func (r *ResidentRepository) List(ctx context.Context) ([]models.Resident, error) {
	const query = `
		SELECT id, plate_number, resident_name, apartment_no, phone, notes
		FROM residents
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var residents []models.Resident
	for rows.Next() {
		var res models.Resident
		if err := rows.Scan(
			&res.ID,
			&res.PlateNumber,
			&res.ResidentName,
			&res.ApartmentNo,
			&res.Phone,
			&res.Notes,
		); err != nil {
			return nil, err
		}
		residents = append(residents, res)
	}
	return residents, rows.Err()
}
