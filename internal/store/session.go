package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session is a stored processing session for one tracked person.
type Session struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	Mirrored  bool      `json:"mirrored"`
	Events    int       `json:"events"`
}

// SessionRepository provides access to sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session. A zero StartedAt is set to now.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	_, err := r.db.Exec(
		`INSERT INTO sessions (id, started_at, mirrored) VALUES (?, ?, ?)`,
		sess.ID, toMillis(sess.StartedAt), sess.Mirrored,
	)
	return err
}

// End marks the session as finished at t.
func (r *SessionRepository) End(id string, t time.Time) error {
	result, err := r.db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, toMillis(t), id)
	if err != nil {
		return err
	}
	return affected(result)
}

const sessionColumns = `s.id, s.started_at, COALESCE(s.ended_at, 0), s.mirrored,
	(SELECT COUNT(*) FROM movement_events e WHERE e.session_id = s.id)`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	sess := &Session{}
	var started, ended int64
	if err := row.Scan(&sess.ID, &started, &ended, &sess.Mirrored, &sess.Events); err != nil {
		return nil, err
	}
	sess.StartedAt = fromMillis(started)
	sess.EndedAt = fromMillis(ended)
	return sess, nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess, err := scanSession(r.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns the most recent sessions first. A limit of zero or less
// returns all of them.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT `+sessionColumns+` FROM sessions s ORDER BY s.started_at DESC, s.id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []*Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Delete removes a session and its events.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(result)
}
