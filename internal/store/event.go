package store

import (
	"database/sql"
)

// Event is a movement that became active during a session.
type Event struct {
	ID           int64   `json:"id"`
	SessionID    string  `json:"session_id"`
	AnalyzerID   string  `json:"analyzer_id"`
	BodyPart     string  `json:"body_part"`
	MovementType string  `json:"movement_type"`
	Direction    string  `json:"direction,omitempty"`
	Descriptor   string  `json:"descriptor"`
	Confidence   float64 `json:"confidence"`
	Magnitude    float64 `json:"magnitude"`
	TimestampMs  int64   `json:"timestamp_ms"`
}

// EventRepository provides access to movement events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the movement event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create inserts the event and sets its ID.
func (r *EventRepository) Create(e *Event) error {
	result, err := r.db.Exec(
		`INSERT INTO movement_events
		 (session_id, analyzer_id, body_part, movement_type, direction, descriptor, confidence, magnitude, timestamp_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.AnalyzerID, e.BodyPart, e.MovementType, e.Direction, e.Descriptor,
		e.Confidence, e.Magnitude, e.TimestampMs,
	)
	if err != nil {
		return err
	}
	e.ID, err = result.LastInsertId()
	return err
}

// ListBySession returns a session's events in activation order. A limit
// of zero or less returns all of them.
func (r *EventRepository) ListBySession(sessionID string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT id, session_id, analyzer_id, body_part, movement_type, direction, descriptor, confidence, magnitude, timestamp_ms
		 FROM movement_events WHERE session_id = ? ORDER BY timestamp_ms, id LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		e := &Event{}
		err := rows.Scan(&e.ID, &e.SessionID, &e.AnalyzerID, &e.BodyPart, &e.MovementType,
			&e.Direction, &e.Descriptor, &e.Confidence, &e.Magnitude, &e.TimestampMs)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountByAnalyzer returns how many events each analyzer produced in a
// session.
func (r *EventRepository) CountByAnalyzer(sessionID string) (map[string]int, error) {
	rows, err := r.db.Query(
		`SELECT analyzer_id, COUNT(*) FROM movement_events WHERE session_id = ? GROUP BY analyzer_id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}
