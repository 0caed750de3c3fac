// Package proxy forwards verified traffic to the protected backend.
package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// NewProxy returns a reverse proxy to backend. The pass cookie is removed
// before the request leaves so the backend never sees it.
func NewProxy(backend, passCookie string, logger *zap.Logger) (http.Handler, error) {
	u, err := url.Parse(backend)
	if err != nil {
		return nil, fmt.Errorf("parsing backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q needs a scheme and host", backend)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("proxy")

	rp := httputil.NewSingleHostReverseProxy(u)
	origDirector := rp.Director
	rp.Director = func(req *http.Request) {
		origDirector(req)
		stripCookie(req, passCookie)
		req.Header.Set("X-Checkpoint-Verified", "1")
	}
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("backend unreachable", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
	}
	return rp, nil
}

func stripCookie(req *http.Request, name string) {
	cookies := req.Cookies()
	if len(cookies) == 0 {
		return
	}
	kept := make([]string, 0, len(cookies))
	for _, c := range cookies {
		if c.Name != name {
			kept = append(kept, c.Name+"="+c.Value)
		}
	}
	if len(kept) == 0 {
		req.Header.Del("Cookie")
		return
	}
	req.Header.Set("Cookie", strings.Join(kept, "; "))
}
