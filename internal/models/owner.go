package models

import "time"

// OwnerRecord is a cached plate-to-owner resolution. At most one record exists
// per plate number.
type OwnerRecord struct {
	ID               int64     `db:"id" json:"id"`
	PlateNumber      string    `db:"plate_number" json:"plate_number"`
	OwnerName        string    `db:"owner_name" json:"owner_name"`
	VehicleModel     string    `db:"vehicle_model" json:"vehicle_model"`
	RegistrationDate *string   `db:"registration_date" json:"registration_date"`
	RawData          string    `db:"raw_data" json:"raw_data"`
	LastChecked      time.Time `db:"last_checked" json:"last_checked"`
}

// OwnerInfo is the resolution result handed back to callers of the directory.
type OwnerInfo struct {
	OwnerName        string  `json:"owner_name"`
	VehicleModel     string  `json:"vehicle_model"`
	RegistrationDate *string `json:"registration_date"`
	RawData          string  `json:"raw_data"`
}

// Info projects the cached record into an OwnerInfo.
func (r *OwnerRecord) Info() OwnerInfo {
	return OwnerInfo{
		OwnerName:        r.OwnerName,
		VehicleModel:     r.VehicleModel,
		RegistrationDate: r.RegistrationDate,
		RawData:          r.RawData,
	}
}
