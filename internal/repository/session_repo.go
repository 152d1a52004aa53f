package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"vehiclesense/internal/models"
)

// ErrSessionNotFound indicates no matching session row.
var ErrSessionNotFound = errors.New("session not found")

const sessionColumns = `id, plate_number, entry_time, last_seen, exit_time, status, owner_id`

// SessionRepository handles persistence of access sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// FindActiveByPlate returns the open session for a plate, if any.
func (r *SessionRepository) FindActiveByPlate(ctx context.Context, plate string) (*models.AccessSession, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM access_sessions
		WHERE plate_number = $1 AND status = 'active'
	`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, plate))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return session, err
}

// OpenOrTouch creates an active session for the plate or, when one already
// exists, advances its last_seen. The partial unique index on active plates
// turns a concurrent duplicate open into the touch branch.
func (r *SessionRepository) OpenOrTouch(ctx context.Context, plate string, now time.Time) (*models.AccessSession, error) {
	const query = `
		INSERT INTO access_sessions (plate_number, entry_time, last_seen, status)
		VALUES ($1, $2, $2, 'active')
		ON CONFLICT (plate_number) WHERE status = 'active'
		DO UPDATE SET last_seen = EXCLUDED.last_seen
		RETURNING ` + sessionColumns + `
	`
	return scanSession(r.db.QueryRowContext(ctx, query, plate, now.UTC()))
}

// SetOwner attaches an owner cache record to the session, overwriting any
// previous attachment.
func (r *SessionRepository) SetOwner(ctx context.Context, sessionID, ownerID int64) error {
	const query = `UPDATE access_sessions SET owner_id = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, sessionID, ownerID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// CloseStale marks every active session not seen since threshold as exited
// and returns the closed sessions.
func (r *SessionRepository) CloseStale(ctx context.Context, threshold, now time.Time) ([]models.AccessSession, error) {
	const query = `
		UPDATE access_sessions
		SET exit_time = $2, status = 'exited'
		WHERE status = 'active' AND last_seen < $1
		RETURNING ` + sessionColumns + `
	`
	rows, err := r.db.QueryContext(ctx, query, threshold.UTC(), now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var closed []models.AccessSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		closed = append(closed, *session)
	}
	return closed, rows.Err()
}

// List returns recent sessions, most recently seen first.
func (r *SessionRepository) List(ctx context.Context, activeOnly bool, limit int) ([]models.AccessSession, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	query := `
		SELECT ` + sessionColumns + `
		FROM access_sessions
	`
	if activeOnly {
		query += ` WHERE status = 'active'`
	}
	query += `
		ORDER BY last_seen DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.AccessSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.AccessSession, error) {
	var s models.AccessSession
	if err := row.Scan(
		&s.ID,
		&s.PlateNumber,
		&s.EntryTime,
		&s.LastSeen,
		&s.ExitTime,
		&s.Status,
		&s.OwnerID,
	); err != nil {
		return nil, err
	}
	return &s, nil
}
