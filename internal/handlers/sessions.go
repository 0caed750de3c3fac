package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"checkpoint/internal/diagnostics"
	"checkpoint/internal/engine"
	"checkpoint/internal/fingerprint"
	"checkpoint/internal/store"
	"checkpoint/internal/types"
	"checkpoint/internal/utils"
)

// Hosted is a page session driven by a remote sensor.
type Hosted struct {
	Page     *engine.Page
	ClientIP string

	caps   *reportedCaps
	notify *streamNotifier
}

// Close tears down the page, then releases the stream and any pending
// battery wait.
func (h *Hosted) Close() {
	h.Page.Close()
	h.caps.close()
	h.notify.close()
}

type createSessionRequest struct {
	Fingerprint  types.Fingerprint `json:"fingerprint"`
	Capabilities Capabilities      `json:"capabilities"`
}

type sessionResponse struct {
	ID    string `json:"id"`
	State string `json:"state,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if c := req.Fingerprint.Canvas; c != nil && strings.HasPrefix(*c, "data:") {
		hash := fingerprint.HashCanvas(*c)
		req.Fingerprint.Canvas = &hash
	}

	id := uuid.NewString()
	ip := utils.ClientIP(r)
	h := s.newHosted(id, ip, req)
	s.sessions.Put(id, ip, h)

	// The session outlives this request.
	h.Page.Start(context.WithoutCancel(r.Context()))

	s.logger.Info("session created", zap.String("session", id), zap.String("ip", ip))
	writeJSON(w, http.StatusCreated, sessionResponse{ID: id})
}

func (s *Server) newHosted(id, ip string, req createSessionRequest) *Hosted {
	logger := s.deps.Logger.With(zap.String("session", id))
	caps := newReportedCaps(req.Capabilities)
	notify := newStreamNotifier(func() string {
		token, err := s.deps.Passes.Issue(id, ip)
		if err != nil {
			logger.Error("issuing pass", zap.Error(err))
			return ""
		}
		return token
	})

	hooks := []engine.Hook{
		diagnostics.Automation(caps, logger),
		diagnostics.VM(logger),
	}
	if s.deps.Geo != nil {
		hooks = append(hooks, s.deps.Geo.Hook(ip))
	}

	page := engine.New(id, fingerprint.Static(req.Fingerprint), caps, notify, engine.Options{
		Config: s.cfg.Scoring,
		Clock:  s.deps.Clock,
		Logger: s.deps.Logger,
		Rand:   s.deps.Rand,
		Hooks:  hooks,
	})
	page.OnDecision(func(out types.Outcome) { s.record(id, ip, out) })

	return &Hosted{Page: page, ClientIP: ip, caps: caps, notify: notify}
}

// record runs on the session loop, so the write happens elsewhere.
func (s *Server) record(id, ip string, out types.Outcome) {
	if s.deps.Ledger == nil {
		return
	}
	d := store.Decision{
		SessionID: id,
		ClientIP:  ip,
		State:     out.State,
		Score:     out.Score,
		Elapsed:   out.Elapsed,
		Settle:    out.Settle,
		DecidedAt: out.At,
	}
	go func() {
		if err := s.deps.Ledger.Record(context.Background(), d); err != nil {
			s.logger.Warn("recording decision", zap.String("session", id), zap.Error(err))
		}
	}()
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h, ok := s.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, ErrSessionNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, State: h.Page.State().String()})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.sessions.Delete(id) {
		writeError(w, http.StatusNotFound, ErrSessionNotFound.Error())
		return
	}
	s.logger.Info("session ended", zap.String("session", id))
	w.WriteHeader(http.StatusNoContent)
}
