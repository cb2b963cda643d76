package admin

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

// healthResponse is the JSON response for GET /healthz.
type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
	Tools  int    `json:"tools"`
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := healthResponse{
			Status: "ok",
			Uptime: time.Since(s.startedAt).Round(time.Second).String(),
		}
		if s.registry != nil {
			resp.Tools = len(s.registry.Names())
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// toolJSON is the catalog entry for GET /v1/tools. The input schema is
// included so operators can see exactly what the model is offered.
type toolJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

func (s *Server) handleListTools() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		defs := s.registry.Definitions()
		out := make([]toolJSON, 0, len(defs))
		for _, def := range defs {
			out = append(out, toolJSON{
				Name:        def.Name,
				Description: def.Description,
				InputSchema: def.InputSchema,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// executionsResponse pairs the history with aggregate counts.
type executionsResponse struct {
	Stats      tool.Stats       `json:"stats"`
	Executions []tool.Execution `json:"executions"`
}

func (s *Server) handleListExecutions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history := s.registry.History()

		// ?limit=N returns only the most recent N records.
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 0 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			if limit < len(history) {
				history = history[len(history)-limit:]
			}
		}

		writeJSON(w, http.StatusOK, executionsResponse{
			Stats:      s.registry.ExecutionStats(),
			Executions: history,
		})
	}
}

func (s *Server) handleListSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.sessions == nil {
			writeError(w, http.StatusServiceUnavailable, "session store not configured")
			return
		}
		summaries, err := s.sessions.List(r.Context())
		if err != nil {
			s.logger.Error("list sessions failed", "error", err)
			writeError(w, http.StatusInternalServerError, "cannot list sessions")
			return
		}
		writeJSON(w, http.StatusOK, summaries)
	}
}

func (s *Server) handleDeleteSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.sessions == nil {
			writeError(w, http.StatusServiceUnavailable, "session store not configured")
			return
		}
		id := chi.URLParam(r, "id")
		if err := s.sessions.Delete(r.Context(), id); err != nil {
			s.logger.Error("delete session failed", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "cannot delete session")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
