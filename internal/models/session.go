package models

import "time"

// Session status values.
const (
	SessionStatusActive = "active"
	SessionStatusExited = "exited"
)

// AccessSession represents one continuous presence interval of a vehicle,
// bounded by an entry detection and a timeout-based exit.
type AccessSession struct {
	ID          int64      `db:"id" json:"id"`
	PlateNumber string     `db:"plate_number" json:"plate"`
	EntryTime   time.Time  `db:"entry_time" json:"entry_time"`
	LastSeen    time.Time  `db:"last_seen" json:"last_seen"`
	ExitTime    *time.Time `db:"exit_time" json:"exit_time"`
	Status      string     `db:"status" json:"status"`
	OwnerID     *int64     `db:"owner_id" json:"owner_id,omitempty"`
}

// Active reports whether the vehicle is still considered on premises.
func (s *AccessSession) Active() bool {
	return s.Status == SessionStatusActive
}
