package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/4ug-aug/envoy-v2/pkg/models"
)

// handleSessions implements GET /sessions and POST /sessions.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sessions, err := s.store.ListSessions(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessions)
	case http.MethodPost:
		var req struct {
			Title string `json:"title"`
		}
		_ = decodeJSON(r, &req)
		session := &models.Session{ID: uuid.NewString(), Title: req.Title, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		if err := s.store.CreateSession(r.Context(), session); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, session)
	default:
		writeError(w, http.StatusMethodNotAllowed, "GET or POST only")
	}
}

// handleSessionByID implements GET /sessions/:id/messages and DELETE /sessions/:id.
func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	tail := pathTail("/api/v1/sessions/", r.URL.Path)
	if tail == "" {
		writeError(w, http.StatusNotFound, "missing session id")
		return
	}

	if id, ok := strings.CutSuffix(tail, "/messages"); ok {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "GET only")
			return
		}
		messages, err := s.store.ListMessages(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messages)
		return
	}

	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "DELETE only")
		return
	}
	if err := s.store.DeleteSession(r.Context(), tail); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
