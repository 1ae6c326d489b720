package httpapi

import (
	"net/http"
	"sort"

	"github.com/4ug-aug/envoy-v2/pkg/models"
)

type toolsResponse struct {
	BuiltIn []string             `json:"builtIn"`
	Custom  []*models.CustomTool `json:"custom"`
}

// handleTools implements GET /tools → {builtIn, custom}.
func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	custom, err := s.catalog.ListTools(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	builtIn := make([]string, 0, len(s.builtinNames))
	for name := range s.builtinNames {
		builtIn = append(builtIn, name)
	}
	sort.Strings(builtIn)
	writeJSON(w, http.StatusOK, toolsResponse{BuiltIn: builtIn, Custom: custom})
}

// handleToolByName implements DELETE /tools/:name — built-in names are 400.
func (s *Server) handleToolByName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "DELETE only")
		return
	}
	name := pathTail("/api/v1/tools/", r.URL.Path)
	if name == "" {
		writeError(w, http.StatusNotFound, "missing tool name")
		return
	}
	if _, builtin := s.builtinNames[name]; builtin {
		writeError(w, http.StatusBadRequest, "built-in tools cannot be deleted")
		return
	}
	if err := s.catalog.DeleteTool(r.Context(), name); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
