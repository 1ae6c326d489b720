package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/4ug-aug/envoy-v2/internal/bus"
)

// handleEvents implements GET /events?sessionId=…: an SSE stream opening
// with a KindConnected event, then relaying every event §4.A publishes for
// that session until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events, unsubscribe := s.bus.Subscribe(sessionID)
	defer unsubscribe()

	writeSSEEvent(w, bus.Event{Kind: bus.KindConnected, Payload: bus.ConnectedPayload{SessionID: sessionID}})
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			writeSSEEvent(w, event)
			flusher.Flush()
		}
	}
}

// writeSSEEvent frames one bus.Event as a single "message"-named SSE
// frame, per spec §6's SSE event framing rule. The JSON payload always
// carries a "type" field naming the event kind, with the kind-specific
// fields merged alongside it.
func writeSSEEvent(w http.ResponseWriter, event bus.Event) {
	fields := map[string]any{"type": string(event.Kind)}
	if event.Payload != nil {
		raw, err := json.Marshal(event.Payload)
		if err == nil {
			var decoded map[string]any
			if err := json.Unmarshal(raw, &decoded); err == nil {
				for k, v := range decoded {
					fields[k] = v
				}
			}
		}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
}
