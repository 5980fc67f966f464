package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/lherron/tasklens/internal/domain"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// apiMessage is the error text returned by the JSON API. Unlike page
// messages it includes upstream status and body.
func apiMessage(err error) string {
	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return cfgErr.Error()
	}
	var upErr *domain.UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Error()
	}
	return err.Error()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"time": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListTasks(r.Context())
	if err != nil {
		s.logger.Error("api tasks failed", "stage", "api.tasks", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"message": apiMessage(err),
		})
		return
	}
	if records == nil {
		records = []domain.TaskRecord{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": records,
	})
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	identity, err := s.resolver.Resolve(r.Context(), bearerToken(r))
	if err != nil {
		s.logger.Error("api users failed", "stage", "api.users", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":   "Failed to fetch session data",
			"details": apiMessage(err),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, identity)
}
