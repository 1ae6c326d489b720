package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/4ug-aug/envoy-v2/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeStoreError maps a store error to the 404/500 split spec §7 names for
// "not found" versus "storage failure".
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

// pathTail returns the path segment after prefix, e.g. pathTail("/api/v1/tools/", "/api/v1/tools/echo") == "echo".
func pathTail(prefix, path string) string {
	if len(path) <= len(prefix) {
		return ""
	}
	return path[len(prefix):]
}
