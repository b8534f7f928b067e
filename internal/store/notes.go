package store

import (
	"context"
	"fmt"

	"lecturemate/internal/model"
)

func (s *Store) SaveNote(ctx context.Context, n model.Note) error {
	err := s.write(ctx, "save note", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO notes (id, course_id, lecture_id, timestamp, transcript_text, text, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				text = excluded.text,
				transcript_text = excluded.transcript_text
		`,
			n.ID,
			n.CourseID,
			n.LectureID,
			n.Timestamp,
			n.TranscriptText,
			n.Text,
			toMillis(n.CreatedAt),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("store: save note: %w", err)
	}
	return nil
}

// ListNotes returns a course's notes ordered by lecture and position.
func (s *Store) ListNotes(ctx context.Context, courseID string) ([]model.Note, error) {
	if s == nil || s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, course_id, lecture_id, timestamp, transcript_text, text, created_at
		FROM notes
		WHERE course_id = ?
		ORDER BY lecture_id, timestamp, created_at
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Note
	for rows.Next() {
		var (
			n       model.Note
			created int64
		)
		if err := rows.Scan(&n.ID, &n.CourseID, &n.LectureID, &n.Timestamp, &n.TranscriptText, &n.Text, &created); err != nil {
			return nil, err
		}
		n.CreatedAt = fromMillis(created)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) DeleteNote(ctx context.Context, id string) error {
	var affected int64
	err := s.write(ctx, "delete note", func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("store: delete note: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
