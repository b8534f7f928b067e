package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"lecturemate/internal/model"
)

// SaveSession inserts or replaces a study session.
func (s *Store) SaveSession(ctx context.Context, ss model.StudySession) error {
	err := s.write(ctx, "save session", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO study_sessions (id, title, course, url, scheduled_time, status, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				course = excluded.course,
				url = excluded.url,
				scheduled_time = excluded.scheduled_time,
				status = excluded.status,
				last_updated = excluded.last_updated
		`,
			ss.ID,
			ss.Title,
			ss.Course,
			ss.URL,
			toMillis(ss.ScheduledTime),
			string(ss.Status),
			toMillis(ss.LastUpdated),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("store: save session %s: %w", ss.ID, err)
	}
	return nil
}

func (s *Store) Session(ctx context.Context, id string) (model.StudySession, error) {
	if s == nil || s.db == nil {
		return model.StudySession{}, errNoDB
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, course, url, scheduled_time, status, last_updated
		FROM study_sessions
		WHERE id = ?
	`, id)
	ss, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StudySession{}, ErrNotFound
	}
	return ss, err
}

// ListSessions returns sessions ordered by scheduled time. With no statuses
// given every session is returned.
func (s *Store) ListSessions(ctx context.Context, statuses ...model.SessionStatus) ([]model.StudySession, error) {
	if s == nil || s.db == nil {
		return nil, errNoDB
	}
	query := `SELECT id, title, course, url, scheduled_time, status, last_updated FROM study_sessions`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status IN (?` + strings.Repeat(",?", len(statuses)-1) + `)`
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY scheduled_time, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StudySession
	for rows.Next() {
		ss, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ss)
	}
	return out, rows.Err()
}

func scanSession(sc scanner) (model.StudySession, error) {
	var (
		ss                 model.StudySession
		status             string
		scheduled, updated int64
	)
	if err := sc.Scan(&ss.ID, &ss.Title, &ss.Course, &ss.URL, &scheduled, &status, &updated); err != nil {
		return model.StudySession{}, err
	}
	ss.Status = model.SessionStatus(status)
	ss.ScheduledTime = fromMillis(scheduled)
	ss.LastUpdated = fromMillis(updated)
	return ss, nil
}
