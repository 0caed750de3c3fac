package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// TelemetryPayload is a batch of sensor messages for clients that cannot
// hold a websocket open.
type TelemetryPayload struct {
	Events []ClientMessage `json:"events"`
}

type telemetryResponse struct {
	Accepted int    `json:"accepted"`
	State    string `json:"state"`
}

// TelemetryHandler applies a batch of sensor messages in order.
func (s *Server) TelemetryHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h, ok := s.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, ErrSessionNotFound.Error())
		return
	}

	var payload TelemetryPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	accepted := 0
	for _, m := range payload.Events {
		if s.apply(h, m) {
			accepted++
		}
	}
	writeJSON(w, http.StatusOK, telemetryResponse{Accepted: accepted, State: h.Page.State().String()})
}
