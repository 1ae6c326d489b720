package httpapi

import (
	"net/http"
	"strings"

	"github.com/4ug-aug/envoy-v2/internal/integrations"
)

// handleIntegrations implements GET /integrations → array of Status.
func (s *Server) handleIntegrations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	list, err := s.integrations.ListIntegrations(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	statuses := make([]*integrations.Status, 0, len(list))
	for _, in := range list {
		status, err := s.integrations.GetStatus(r.Context(), in.Name)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		statuses = append(statuses, status)
	}
	writeJSON(w, http.StatusOK, statuses)
}

// handleIntegrationByName implements POST /integrations/:name/config and
// DELETE /integrations/:name.
func (s *Server) handleIntegrationByName(w http.ResponseWriter, r *http.Request) {
	tail := pathTail("/api/v1/integrations/", r.URL.Path)
	if tail == "" {
		writeError(w, http.StatusNotFound, "missing integration name")
		return
	}

	if name, ok := strings.CutSuffix(tail, "/config"); ok {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST only")
			return
		}
		var values map[string]string
		if err := decodeJSON(r, &values); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if err := s.integrations.SetConfig(r.Context(), name, values); err != nil {
			writeStoreError(w, err)
			return
		}
		status, err := s.integrations.GetStatus(r.Context(), name)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "DELETE only")
		return
	}
	if err := s.integrations.DeleteIntegration(r.Context(), tail); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
