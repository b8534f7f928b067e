package store

import "fmt"

const schemaMigrations = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY
);`

const schemaSettings = `
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

const schemaLectureProgress = `
CREATE TABLE IF NOT EXISTS lecture_progress (
	course_id TEXT NOT NULL,
	lecture_id TEXT NOT NULL,
	watched REAL NOT NULL DEFAULT 0 CHECK (watched >= 0),
	duration REAL NOT NULL DEFAULT 0 CHECK (duration >= 0),
	completed INTEGER NOT NULL DEFAULT 0,
	last_watched_at INTEGER NOT NULL,
	PRIMARY KEY (course_id, lecture_id)
);`

const schemaNotes = `
CREATE TABLE IF NOT EXISTS notes (
	id TEXT PRIMARY KEY,
	course_id TEXT NOT NULL,
	lecture_id TEXT NOT NULL,
	timestamp REAL NOT NULL CHECK (timestamp >= 0),
	transcript_text TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL,
	created_at INTEGER NOT NULL
);`

const schemaNotesIndexes = `
CREATE INDEX IF NOT EXISTS idx_notes_course ON notes(course_id, lecture_id, timestamp);`

const schemaStudySessions = `
CREATE TABLE IF NOT EXISTS study_sessions (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	course TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	scheduled_time INTEGER NOT NULL,
	status TEXT NOT NULL,
	last_updated INTEGER NOT NULL
);`

const schemaStudySessionsIndexes = `
CREATE INDEX IF NOT EXISTS idx_study_sessions_scheduled ON study_sessions(scheduled_time);
CREATE INDEX IF NOT EXISTS idx_study_sessions_status ON study_sessions(status);`

type migration struct {
	version    int
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		statements: []string{
			schemaSettings,
			schemaLectureProgress,
			schemaNotes,
			schemaNotesIndexes,
		},
	},
	{
		version: 2,
		statements: []string{
			schemaStudySessions,
			schemaStudySessionsIndexes,
		},
	},
}

// MigrateSchema applies every migration newer than the recorded version.
func (s *Store) MigrateSchema() error {
	if s == nil || s.db == nil {
		return errNoDB
	}
	if _, err := s.db.Exec(schemaMigrations); err != nil {
		return fmt.Errorf("store: create schema_migrations table: %w", err)
	}

	current, err := s.SchemaVersion()
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.applyMigration(m); err != nil {
			return err
		}
		s.log.Debug("Applied migration", "version", m.version)
		current = m.version
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion() (int, error) {
	var version int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("store: read schema version: %w", err)
	}
	return version, nil
}

func (s *Store) applyMigration(m migration) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: start migration %d: %w", m.version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range m.statements {
		if _, err = tx.Exec(stmt); err != nil {
			return fmt.Errorf("store: migration %d failed: %w", m.version, err)
		}
	}
	if _, err = tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
		return fmt.Errorf("store: record migration %d: %w", m.version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit migration %d: %w", m.version, err)
	}
	return nil
}
