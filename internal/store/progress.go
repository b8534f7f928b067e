package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lecturemate/internal/model"
)

func progressKey(courseID, lectureID string) string {
	return courseID + "\x00" + lectureID
}

// SaveProgress upserts a lecture's progress. Stored watch time and the
// completed flag never move backwards; a zero duration keeps the stored one.
func (s *Store) SaveProgress(ctx context.Context, p model.LectureProgress) error {
	if p.CourseID == "" || p.LectureID == "" {
		return fmt.Errorf("store: progress requires course and lecture id")
	}
	err := s.write(ctx, "save progress", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO lecture_progress (course_id, lecture_id, watched, duration, completed, last_watched_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(course_id, lecture_id) DO UPDATE SET
				watched = MAX(lecture_progress.watched, excluded.watched),
				duration = CASE WHEN excluded.duration > 0 THEN excluded.duration ELSE lecture_progress.duration END,
				completed = MAX(lecture_progress.completed, excluded.completed),
				last_watched_at = MAX(lecture_progress.last_watched_at, excluded.last_watched_at)
		`,
			p.CourseID,
			p.LectureID,
			p.WatchedTime,
			p.Duration,
			p.Completed,
			toMillis(p.LastWatchedAt),
		)
		return err
	})
	s.cache.Remove(progressKey(p.CourseID, p.LectureID))
	if err != nil {
		return fmt.Errorf("store: save progress %s/%s: %w", p.CourseID, p.LectureID, err)
	}
	return nil
}

// Progress returns the stored progress of one lecture, or ErrNotFound.
func (s *Store) Progress(ctx context.Context, courseID, lectureID string) (model.LectureProgress, error) {
	if s == nil || s.db == nil {
		return model.LectureProgress{}, errNoDB
	}
	key := progressKey(courseID, lectureID)
	if p, ok := s.cache.Get(key); ok {
		return p, nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT course_id, lecture_id, watched, duration, completed, last_watched_at
		FROM lecture_progress
		WHERE course_id = ? AND lecture_id = ?
	`, courseID, lectureID)
	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LectureProgress{}, ErrNotFound
	}
	if err != nil {
		return model.LectureProgress{}, err
	}
	s.cache.Add(key, p)
	return p, nil
}

// CourseProgress lists every lecture of a course, most recently watched first.
func (s *Store) CourseProgress(ctx context.Context, courseID string) ([]model.LectureProgress, error) {
	if s == nil || s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT course_id, lecture_id, watched, duration, completed, last_watched_at
		FROM lecture_progress
		WHERE course_id = ?
		ORDER BY last_watched_at DESC, lecture_id
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LectureProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Courses returns the distinct course ids that have progress recorded.
func (s *Store) Courses(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT course_id FROM lecture_progress ORDER BY course_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProgress(sc scanner) (model.LectureProgress, error) {
	var (
		p    model.LectureProgress
		last int64
	)
	if err := sc.Scan(&p.CourseID, &p.LectureID, &p.WatchedTime, &p.Duration, &p.Completed, &last); err != nil {
		return model.LectureProgress{}, err
	}
	p.LastWatchedAt = fromMillis(last)
	return p, nil
}
