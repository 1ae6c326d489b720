package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/4ug-aug/envoy-v2/pkg/models"
)

type taskView struct {
	*models.ScheduledTask
	LastRun any `json:"lastRun,omitempty"`
}

// handleTasks implements GET /tasks → array with lastRun (output JSON parsed).
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	tasks, err := s.store.ListTasks(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	views := make([]taskView, 0, len(tasks))
	for _, task := range tasks {
		view := taskView{ScheduledTask: task}
		runs, err := s.store.ListTaskRuns(r.Context(), task.ID, 1)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if len(runs) > 0 {
			view.LastRun = parseOutput(runs[0].Output)
		}
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, views)
}

// handleTaskByName implements GET /tasks/:name/runs?limit= and DELETE /tasks/:name.
func (s *Server) handleTaskByName(w http.ResponseWriter, r *http.Request) {
	tail := pathTail("/api/v1/tasks/", r.URL.Path)
	if tail == "" {
		writeError(w, http.StatusNotFound, "missing task name")
		return
	}

	if name, ok := strings.CutSuffix(tail, "/runs"); ok {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "GET only")
			return
		}
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		task, err := s.store.GetTask(r.Context(), name)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		runs, err := s.store.ListTaskRuns(r.Context(), task.ID, limit)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, runs)
		return
	}

	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "DELETE only")
		return
	}
	if err := s.store.DeleteTask(r.Context(), tail); err != nil {
		writeStoreError(w, err)
		return
	}
	s.scheduler.UnscheduleTask(tail)
	w.WriteHeader(http.StatusNoContent)
}

// parseOutput decodes a task run's output JSON for embedding in the task
// list response, falling back to the raw string if it isn't valid JSON.
func parseOutput(output string) any {
	if output == "" {
		return nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(output), &decoded); err != nil {
		return output
	}
	return decoded
}
