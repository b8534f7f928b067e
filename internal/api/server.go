// Package api serves read access to progress, notes and study sessions for a
// popup-style client, plus the reminder actions.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lecturemate/internal/model"
)

// Store is the read side of persistence used by the API.
type Store interface {
	Ping(ctx context.Context) error
	Courses(ctx context.Context) ([]string, error)
	CourseProgress(ctx context.Context, courseID string) ([]model.LectureProgress, error)
	ListNotes(ctx context.Context, courseID string) ([]model.Note, error)
	ListSessions(ctx context.Context, statuses ...model.SessionStatus) ([]model.StudySession, error)
}

// Reminders acts on study reminders.
type Reminders interface {
	Active() []model.StudySession
	Click(ctx context.Context, id string) error
	Button(ctx context.Context, id string, index int) error
	Dismiss(ctx context.Context, id string) error
}

type Config struct {
	Store     Store
	Reminders Reminders
	Logger    *slog.Logger
}

type Server struct {
	router    chi.Router
	store     Store
	reminders Reminders
	log       *slog.Logger
}

func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "api")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(slogMiddleware(log))

	s := &Server{router: r, store: cfg.Store, reminders: cfg.Reminders, log: log}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Route("/api/courses", func(r chi.Router) {
		r.Get("/", s.handleCourses)
		r.Get("/{courseID}/progress", s.handleCourseProgress)
		r.Get("/{courseID}/notes", s.handleCourseNotes)
	})
	s.router.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", s.handleSessions)
		r.Get("/active", s.handleActiveReminders)
		r.Post("/{id}/click", s.handleClick)
		r.Post("/{id}/buttons/{index}", s.handleButton)
		r.Post("/{id}/dismiss", s.handleDismiss)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": "database unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.store.Courses(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if courses == nil {
		courses = []string{}
	}
	writeJSON(w, http.StatusOK, courses)
}

type courseProgressResponse struct {
	CourseID  string                  `json:"courseId"`
	Total     int                     `json:"total"`
	Completed int                     `json:"completed"`
	Lectures  []model.LectureProgress `json:"lectures"`
}

func (s *Server) handleCourseProgress(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	lectures, err := s.store.CourseProgress(r.Context(), courseID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	resp := courseProgressResponse{CourseID: courseID, Total: len(lectures), Lectures: lectures}
	if resp.Lectures == nil {
		resp.Lectures = []model.LectureProgress{}
	}
	for _, l := range lectures {
		if l.Completed {
			resp.Completed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCourseNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.store.ListNotes(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if notes == nil {
		notes = []model.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	var statuses []model.SessionStatus
	for _, st := range r.URL.Query()["status"] {
		statuses = append(statuses, model.SessionStatus(st))
	}
	sessions, err := s.store.ListSessions(r.Context(), statuses...)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []model.StudySession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleActiveReminders(w http.ResponseWriter, r *http.Request) {
	if s.reminders == nil {
		writeJSON(w, http.StatusOK, []model.StudySession{})
		return
	}
	writeJSON(w, http.StatusOK, s.reminders.Active())
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	s.reminderAction(w, r, func(ctx context.Context, id string) error {
		return s.reminders.Click(ctx, id)
	})
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.reminderAction(w, r, func(ctx context.Context, id string) error {
		return s.reminders.Dismiss(ctx, id)
	})
}

func (s *Server) handleButton(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid button index"})
		return
	}
	s.reminderAction(w, r, func(ctx context.Context, id string) error {
		return s.reminders.Button(ctx, id, index)
	})
}

func (s *Server) reminderAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) error) {
	if s.reminders == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "reminders are not running"})
		return
	}
	if err := fn(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
