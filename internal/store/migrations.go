package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per tracked-person session
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			ended_at INTEGER,
			mirrored INTEGER NOT NULL DEFAULT 1
		)`,

		// Movements that became active, in order of activation
		`CREATE TABLE IF NOT EXISTS movement_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			analyzer_id TEXT NOT NULL,
			body_part TEXT NOT NULL,
			movement_type TEXT NOT NULL,
			direction TEXT NOT NULL DEFAULT '',
			descriptor TEXT NOT NULL DEFAULT '',
			confidence REAL NOT NULL,
			magnitude REAL NOT NULL DEFAULT 0,
			timestamp_ms INTEGER NOT NULL
		)`,

		// Per-analyzer enablement and stabilizer overrides
		`CREATE TABLE IF NOT EXISTS analyzer_settings (
			analyzer_id TEXT PRIMARY KEY,
			enabled INTEGER NOT NULL DEFAULT 1,
			margin REAL NOT NULL DEFAULT 0,
			debounce_frames INTEGER NOT NULL DEFAULT 0,
			smoothing_frames INTEGER NOT NULL DEFAULT 0,
			threshold REAL NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		)`,

		// Application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_movement_events_session_id ON movement_events(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	// Columns added after the first release
	columns := []struct{ table, name, def string }{
		{"analyzer_settings", "smoothing_frames", "INTEGER NOT NULL DEFAULT 0"},
		{"analyzer_settings", "threshold", "REAL NOT NULL DEFAULT 0"},
	}
	for _, c := range columns {
		if err := s.addColumn(c.table, c.name, c.def); err != nil {
			return err
		}
	}

	return nil
}

// addColumn adds a column unless the table already has it.
func (s *Store) addColumn(table, name, def string) error {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, name,
	).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err = s.db.Exec(`ALTER TABLE ` + table + ` ADD COLUMN ` + name + ` ` + def)
	return err
}
