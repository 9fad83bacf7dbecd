// Package http exposes the session manager as a JSON control surface.
// Hosts drive runs with three verbs: create a session, confirm past a
// review gate, send feedback. Everything else is read-only.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/session"
)

// Server wraps the session manager with HTTP handlers.
type Server struct {
	sessions *session.Manager
}

// NewHandler builds the router.
func NewHandler(sessions *session.Manager) http.Handler {
	s := &Server{sessions: sessions}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.CreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Get("/files", s.GetFiles)
			r.Post("/confirm", s.Confirm)
			r.Post("/feedback", s.Feedback)
		})
	})

	return r
}

// CreateSession handles POST /sessions. Creating a session runs the
// first stage synchronously, so the response already carries the
// review state.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID     string `json:"id"`
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Prompt == "" {
		http.Error(w, "prompt is required", http.StatusBadRequest)
		return
	}

	snap, err := s.sessions.Start(r.Context(), body.ID, body.Prompt)
	if err != nil {
		http.Error(w, fmt.Sprintf("Start error: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, snapshotResponse(snap))
}

// GetSession handles GET /sessions/{sessionID}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Status(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse(snap))
}

// GetFiles handles GET /sessions/{sessionID}/files, returning the full
// untruncated file set.
func (s *Server) GetFiles(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Status(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": snap.Files})
}

// Confirm handles POST /sessions/{sessionID}/confirm.
func (s *Server) Confirm(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Confirm(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse(snap))
}

// Feedback handles POST /sessions/{sessionID}/feedback.
func (s *Server) Feedback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Feedback string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Feedback == "" {
		http.Error(w, "feedback is required", http.StatusBadRequest)
		return
	}

	snap, err := s.sessions.Feedback(r.Context(), chi.URLParam(r, "sessionID"), body.Feedback)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse(snap))
}

// DeleteSession handles DELETE /sessions/{sessionID}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("List error: %v", err), http.StatusInternalServerError)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": ids})
}

func snapshotResponse(snap session.Snapshot) map[string]any {
	return map[string]any{
		"id":     snap.ID,
		"state":  snap.State,
		"done":   snap.Done,
		"output": snap.Output,
	}
}

// writeSessionError maps domain errors onto status codes: a missing
// session is 404, an event the current state does not accept is 409.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrUnhandledEvent):
		http.Error(w, fmt.Sprintf("event not accepted: %v", err), http.StatusConflict)
	default:
		http.Error(w, fmt.Sprintf("session error: %v", err), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Printf("response encode error: %v\n", err)
	}
}
