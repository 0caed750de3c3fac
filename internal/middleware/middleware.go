package middleware

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"checkpoint/internal/ratelimit"
	"checkpoint/internal/utils"
)

var ErrRateLimited = errors.New("rate limit exceeded")

type Middleware struct {
	Limiter ratelimit.Limiter
	Passes  *Passes
	Logger  *zap.Logger
}

func New(limiter ratelimit.Limiter, passes *Passes, logger *zap.Logger) *Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Middleware{
		Limiter: limiter,
		Passes:  passes,
		Logger:  logger.Named("middleware"),
	}
}

// RateLimiter rejects clients over their per-IP budget with 429.
func (m *Middleware) RateLimiter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identifier := utils.ClientIP(r)

		allowed, err := m.Limiter.Allow(r.Context(), identifier)
		if err != nil {
			m.Logger.Error("rate limiter check failed", zap.String("ip", identifier), zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if !allowed {
			m.Logger.Info("rate limit exceeded", zap.String("ip", identifier))
			http.Error(w, ErrRateLimited.Error(), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePass lets requests with a valid pass through to next and sends
// everyone else to challenge.
func (m *Middleware) RequirePass(challenge http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := utils.ClientIP(r)
			token := m.Passes.FromRequest(r)
			if token == "" {
				challenge.ServeHTTP(w, r)
				return
			}
			if _, err := m.Passes.Verify(token, clientIP); err != nil {
				m.Logger.Debug("pass rejected", zap.String("ip", clientIP), zap.Error(err))
				challenge.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
