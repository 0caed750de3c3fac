package handlers

import (
	"net/http"
	"time"
)

// HealthResponse defines the health-check response payload
type HealthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
}

// HealthHandler returns service health and uptime
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Sessions: s.sessions.Len(),
	})
}
