package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lecturemate/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "lecturemate.db"), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMigrateSchema(t *testing.T) {
	s := newTestStore(t)

	version, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, migrations[len(migrations)-1].version, version)

	for _, table := range []string{"schema_migrations", "settings", "lecture_progress", "notes", "study_sessions"} {
		var name string
		err := s.db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}

	// Re-running is a no-op.
	require.NoError(t, s.MigrateSchema())
}

func TestProgressNeverRegresses(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveProgress(ctx, model.LectureProgress{
		CourseID: "coursera:ml", LectureID: "intro", WatchedTime: 50, Duration: 100, LastWatchedAt: at,
	}))

	got, err := s.Progress(ctx, "coursera:ml", "intro")
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.WatchedTime)
	assert.True(t, got.LastWatchedAt.Equal(at))

	// A later, smaller snapshot keeps the larger watch time and known duration.
	require.NoError(t, s.SaveProgress(ctx, model.LectureProgress{
		CourseID: "coursera:ml", LectureID: "intro", WatchedTime: 10, LastWatchedAt: at.Add(time.Minute),
	}))
	got, err = s.Progress(ctx, "coursera:ml", "intro")
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.WatchedTime)
	assert.Equal(t, 100.0, got.Duration)
	assert.True(t, got.LastWatchedAt.Equal(at.Add(time.Minute)))

	require.NoError(t, s.SaveProgress(ctx, model.LectureProgress{
		CourseID: "coursera:ml", LectureID: "intro", WatchedTime: 97, Duration: 100, Completed: true, LastWatchedAt: at,
	}))
	require.NoError(t, s.SaveProgress(ctx, model.LectureProgress{
		CourseID: "coursera:ml", LectureID: "intro", WatchedTime: 97, Duration: 100, Completed: false, LastWatchedAt: at,
	}))
	got, err = s.Progress(ctx, "coursera:ml", "intro")
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, 97.0, got.WatchedTime)
}

func TestProgressNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Progress(context.Background(), "coursera:ml", "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestProgressRequiresIDs(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.SaveProgress(context.Background(), model.LectureProgress{CourseID: "coursera:ml"}))
}

func TestCourseProgress(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveProgress(ctx, model.LectureProgress{
			CourseID: "coursera:ml", LectureID: id, WatchedTime: float64(i), LastWatchedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, s.SaveProgress(ctx, model.LectureProgress{
		CourseID: "linkedin:go", LectureID: "x", LastWatchedAt: base,
	}))

	list, err := s.CourseProgress(ctx, "coursera:ml")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].LectureID)
	assert.Equal(t, "a", list[2].LectureID)

	courses, err := s.Courses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"coursera:ml", "linkedin:go"}, courses)
}

func TestNotes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	notes := []model.Note{
		{ID: "n2", CourseID: "coursera:ml", LectureID: "intro", Timestamp: 90, Text: "later", CreatedAt: created},
		{ID: "n1", CourseID: "coursera:ml", LectureID: "intro", Timestamp: 12.5, TranscriptText: "hello", Text: "first", CreatedAt: created},
		{ID: "n3", CourseID: "linkedin:go", LectureID: "x", Timestamp: 1, Text: "other", CreatedAt: created},
	}
	for _, n := range notes {
		require.NoError(t, s.SaveNote(ctx, n))
	}

	got, err := s.ListNotes(ctx, "coursera:ml")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "n1", got[0].ID)
	assert.Equal(t, "hello", got[0].TranscriptText)
	assert.True(t, got[0].CreatedAt.Equal(created))

	require.NoError(t, s.DeleteNote(ctx, "n1"))
	assert.ErrorIs(t, s.DeleteNote(ctx, "n1"), ErrNotFound)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	at := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveSession(ctx, model.StudySession{
		ID: "s2", Title: "Evening", Course: "ML", ScheduledTime: at.Add(time.Hour), Status: model.SessionScheduled, LastUpdated: at,
	}))
	require.NoError(t, s.SaveSession(ctx, model.StudySession{
		ID: "s1", Title: "Morning", Course: "ML", URL: "https://www.coursera.org/", ScheduledTime: at, Status: model.SessionScheduled, LastUpdated: at,
	}))

	all, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "s1", all[0].ID)

	ss, err := s.Session(ctx, "s1")
	require.NoError(t, err)
	ss.Status = model.SessionDismissed
	require.NoError(t, s.SaveSession(ctx, ss))

	active, err := s.ListSessions(ctx, model.SessionScheduled, model.SessionNotified)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "s2", active[0].ID)

	_, err = s.Session(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Setting(ctx, "max_playback_rate")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetSetting(ctx, "max_playback_rate", "2"))
	require.NoError(t, s.SetSetting(ctx, "max_playback_rate", "1.5"))
	v, err := s.Setting(ctx, "max_playback_rate")
	require.NoError(t, err)
	assert.Equal(t, "1.5", v)

	all, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"max_playback_rate": "1.5"}, all)
}

func TestIntegrityCheck(t *testing.T) {
	s := newTestStore(t)
	res, err := s.IntegrityCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, res)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestIsContentionError(t *testing.T) {
	assert.True(t, IsContentionError(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.False(t, IsContentionError(errors.New("no such table")))
	assert.False(t, IsContentionError(nil))
}

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, ":memory:", sqliteDSN(":memory:", time.Second))
	assert.Equal(t, "file:/tmp/x.db?_pragma=busy_timeout(1000)&_pragma=foreign_keys(1)", sqliteDSN("/tmp/x.db", time.Second))
}
