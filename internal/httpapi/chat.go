package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/4ug-aug/envoy-v2/pkg/models"
)

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// handleChat implements POST /chat: creates the session if sessionId is
// absent, runs one turn of F, and persists the updated conversation state
// and transcript rows before responding.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx := r.Context()

	session, err := s.resolveSession(ctx, req.SessionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if session.Title == "" || session.Title == defaultSessionTitle {
		session.Title = titleFromMessage(req.Message)
		if err := s.store.UpdateSessionMeta(ctx, session); err != nil {
			writeStoreError(w, err)
			return
		}
	}

	assistantText, updatedHistory, err := s.runtime.ProcessTurn(ctx, session.ID, req.Message, session.ConversationState)
	if err != nil {
		s.logger.Error(ctx, "httpapi: turn failed", "session", session.ID, "error", err)
	}

	if err := s.store.UpdateSessionState(ctx, session.ID, updatedHistory); err != nil {
		writeStoreError(w, err)
		return
	}
	if err := s.store.AppendMessage(ctx, &models.TranscriptMessage{
		ID: uuid.NewString(), SessionID: session.ID, Role: models.RoleUser, Content: req.Message, CreatedAt: time.Now(),
	}); err != nil {
		writeStoreError(w, err)
		return
	}
	if err := s.store.AppendMessage(ctx, &models.TranscriptMessage{
		ID: uuid.NewString(), SessionID: session.ID, Role: models.RoleAssistant, Content: assistantText, CreatedAt: time.Now(),
	}); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{SessionID: session.ID, Message: assistantText})
}

// defaultSessionTitle is the placeholder the store assigns a session
// created without a title. handleChat replaces it with one derived from
// the session's first user message, exactly once.
const defaultSessionTitle = "New chat"

// resolveSession returns the named session, creating a fresh one with a
// generated id when sessionID is empty.
func (s *Server) resolveSession(ctx context.Context, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		session := &models.Session{ID: uuid.NewString(), CreatedAt: time.Now(), UpdatedAt: time.Now()}
		if err := s.store.CreateSession(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	}
	return s.store.GetSession(ctx, sessionID)
}

// titleFromMessage derives a session title from the first turn's user
// message: the message itself if short, or its first 40 characters
// followed by an ellipsis otherwise, per the Session entity's title rule.
func titleFromMessage(message string) string {
	message = strings.TrimSpace(message)
	const maxLen = 40
	runes := []rune(message)
	if len(runes) <= maxLen {
		return message
	}
	return string(runes[:maxLen]) + "…"
}
