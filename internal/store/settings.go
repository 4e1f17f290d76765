package store

import (
	"database/sql"
	"errors"
	"time"
)

// AnalyzerSetting is a persisted override for one catalog analyzer. Zero
// numeric fields keep the analyzer's own defaults.
type AnalyzerSetting struct {
	AnalyzerID      string    `json:"analyzer_id"`
	Enabled         bool      `json:"enabled"`
	Margin          float64   `json:"margin"`
	DebounceFrames  int       `json:"debounce_frames"`
	SmoothingFrames int       `json:"smoothing_frames"`
	Threshold       float64   `json:"threshold"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AnalyzerSettingRepository provides access to analyzer settings.
type AnalyzerSettingRepository struct {
	db *sql.DB
}

// AnalyzerSettings returns the analyzer setting repository for this store.
func (s *Store) AnalyzerSettings() *AnalyzerSettingRepository {
	return &AnalyzerSettingRepository{db: s.db}
}

// Upsert inserts or replaces the setting for its analyzer.
func (r *AnalyzerSettingRepository) Upsert(a *AnalyzerSetting) error {
	a.UpdatedAt = time.Now()
	_, err := r.db.Exec(
		`INSERT INTO analyzer_settings (analyzer_id, enabled, margin, debounce_frames, smoothing_frames, threshold, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(analyzer_id) DO UPDATE SET
			enabled = excluded.enabled,
			margin = excluded.margin,
			debounce_frames = excluded.debounce_frames,
			smoothing_frames = excluded.smoothing_frames,
			threshold = excluded.threshold,
			updated_at = excluded.updated_at`,
		a.AnalyzerID, a.Enabled, a.Margin, a.DebounceFrames, a.SmoothingFrames, a.Threshold, toMillis(a.UpdatedAt),
	)
	return err
}

// Get retrieves the setting for an analyzer.
func (r *AnalyzerSettingRepository) Get(analyzerID string) (*AnalyzerSetting, error) {
	a := &AnalyzerSetting{}
	var updated int64
	err := r.db.QueryRow(
		`SELECT analyzer_id, enabled, margin, debounce_frames, smoothing_frames, threshold, updated_at
		 FROM analyzer_settings WHERE analyzer_id = ?`,
		analyzerID,
	).Scan(&a.AnalyzerID, &a.Enabled, &a.Margin, &a.DebounceFrames, &a.SmoothingFrames, &a.Threshold, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.UpdatedAt = fromMillis(updated)
	return a, nil
}

// List returns every stored setting ordered by analyzer ID.
func (r *AnalyzerSettingRepository) List() ([]*AnalyzerSetting, error) {
	rows, err := r.db.Query(
		`SELECT analyzer_id, enabled, margin, debounce_frames, smoothing_frames, threshold, updated_at
		 FROM analyzer_settings ORDER BY analyzer_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []*AnalyzerSetting
	for rows.Next() {
		a := &AnalyzerSetting{}
		var updated int64
		if err := rows.Scan(&a.AnalyzerID, &a.Enabled, &a.Margin, &a.DebounceFrames, &a.SmoothingFrames, &a.Threshold, &updated); err != nil {
			return nil, err
		}
		a.UpdatedAt = fromMillis(updated)
		settings = append(settings, a)
	}
	return settings, rows.Err()
}

// Delete removes the setting for an analyzer, restoring its defaults.
func (r *AnalyzerSettingRepository) Delete(analyzerID string) error {
	result, err := r.db.Exec(`DELETE FROM analyzer_settings WHERE analyzer_id = ?`, analyzerID)
	if err != nil {
		return err
	}
	return affected(result)
}

// SettingRepository provides key/value application settings.
type SettingRepository struct {
	db *sql.DB
}

// Settings returns the key/value settings repository for this store.
func (s *Store) Settings() *SettingRepository {
	return &SettingRepository{db: s.db}
}

// Get returns the value stored under key.
func (r *SettingRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (r *SettingRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// GetBool returns the boolean stored under key, or fallback when unset.
func (r *SettingRepository) GetBool(key string, fallback bool) bool {
	v, err := r.Get(key)
	if err != nil {
		return fallback
	}
	return v == "true"
}
