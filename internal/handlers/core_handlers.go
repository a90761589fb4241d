package handlers

import (
	"net/http"
	"time"

	"devflow/internal/api"
)

// HandleHealth reports liveness and uptime.
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":      "ok",
			"server_time": time.Now().UTC(),
		}
		if s.Metrics != nil {
			body["uptime"] = s.Metrics.Uptime().String()
		}
		api.WriteJSON(w, http.StatusOK, body)
	}
}
