package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Page to server message types.
const (
	MsgPointerMove = "pointermove"
	MsgKeyDown     = "keydown"
	MsgActivate    = "activate"
	MsgBattery     = "battery"
)

type ClientMessage struct {
	Type string  `json:"type"`
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
	Key  string  `json:"key,omitempty"`
}

// apply feeds one sensor message into the session. It reports false for
// unknown types or a closed session.
func (s *Server) apply(h *Hosted, m ClientMessage) bool {
	switch m.Type {
	case MsgPointerMove:
		return h.Page.PointerMove(m.X, m.Y)
	case MsgKeyDown:
		return h.Page.KeyDown(m.Key)
	case MsgActivate:
		return h.Page.Activate()
	case MsgBattery:
		h.caps.resolveBattery()
		return true
	default:
		return false
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h, ok := s.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, ErrSessionNotFound.Error())
		return
	}
	if !h.notify.attach() {
		writeError(w, http.StatusConflict, "stream already attached")
		return
	}
	defer h.notify.detach()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", zap.String("session", id), zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-h.notify.out:
				if !ok {
					_ = conn.Close()
					return
				}
				if err := conn.WriteJSON(m); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	for {
		var m ClientMessage
		if err := conn.ReadJSON(&m); err != nil {
			s.logger.Debug("stream closed", zap.String("session", id), zap.Error(err))
			break
		}
		if _, ok := s.sessions.Get(id); !ok {
			break
		}
		if !s.apply(h, m) {
			s.logger.Debug("message ignored", zap.String("session", id), zap.String("type", m.Type))
		}
	}
	cancel()
	<-done
}
