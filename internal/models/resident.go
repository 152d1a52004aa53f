package models

// Resident maps a plate number to the person registered for it. This is a thin
// directory kept outside the session lifecycle path.
type Resident struct {
	ID           int64  `db:"id" json:"id"`
	PlateNumber  string `db:"plate_number" json:"plate_number"`
	ResidentName string `db:"resident_name" json:"resident_name"`
	ApartmentNo  string `db:"apartment_no" json:"apartment_no"`
	Phone        string `db:"phone" json:"phone"`
	Notes        string `db:"notes" json:"notes,omitempty"`
}
