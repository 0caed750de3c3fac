package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"checkpoint/internal/store"
)

type verifyRequest struct {
	Token string `json:"token"`
	IP    string `json:"ip"`
}

type verifyResponse struct {
	Valid   bool   `json:"valid"`
	Session string `json:"session,omitempty"`
}

// VerifyHandler lets a backend check a pass presented by one of its
// clients.
func (s *Server) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	claims, err := s.deps.Passes.Verify(req.Token, req.IP)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, verifyResponse{Valid: false})
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Valid: true, Session: claims.Subject})
}

type decisionView struct {
	Session   string    `json:"session"`
	IP        string    `json:"ip"`
	State     string    `json:"state"`
	Score     int       `json:"score"`
	ElapsedMS int64     `json:"elapsed_ms"`
	DecidedAt time.Time `json:"decided_at"`
}

type decisionsResponse struct {
	Verified int            `json:"verified_24h"`
	Failed   int            `json:"failed_24h"`
	Recent   []decisionView `json:"recent"`
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 1000 {
		limit = v
	}
	recent, err := s.deps.Ledger.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reading decisions")
		return
	}
	verified, failed, err := s.deps.Ledger.Counts(r.Context(), s.deps.Clock.Now().Add(-24*time.Hour))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "counting decisions")
		return
	}
	resp := decisionsResponse{Verified: verified, Failed: failed, Recent: make([]decisionView, 0, len(recent))}
	for _, d := range recent {
		resp.Recent = append(resp.Recent, view(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

func view(d store.Decision) decisionView {
	return decisionView{
		Session:   d.SessionID,
		IP:        d.ClientIP,
		State:     d.State.String(),
		Score:     d.Score,
		ElapsedMS: d.Elapsed.Milliseconds(),
		DecidedAt: d.DecidedAt,
	}
}
