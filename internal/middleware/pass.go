package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"checkpoint/internal/config"
	"checkpoint/internal/utils"
)

var ErrInvalidToken = errors.New("invalid pass token")

// Claims bind a pass to the session that earned it and the client address.
type Claims struct {
	IP string `json:"ip"`
	jwt.RegisteredClaims
}

// Passes issues and checks HS256 pass tokens.
type Passes struct {
	secret []byte
	ttl    time.Duration
	cookie string
	now    func() time.Time
}

func NewPasses(cfg config.TokenConfig) *Passes {
	return &Passes{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		cookie: cfg.CookieName,
		now:    time.Now,
	}
}

func (p *Passes) Issue(sessionID, clientIP string) (string, error) {
	now := p.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		IP: clientIP,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			ID:        utils.GenerateNonce(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	})
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("signing pass for %s: %w", sessionID, err)
	}
	return signed, nil
}

// Verify parses the token and checks it was issued to clientIP.
func (p *Passes) Verify(token, clientIP string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.IP != clientIP {
		return nil, fmt.Errorf("%w: issued to %s, presented by %s", ErrInvalidToken, claims.IP, clientIP)
	}
	return claims, nil
}

// FromRequest reads the pass from the cookie or a bearer header.
func (p *Passes) FromRequest(r *http.Request) string {
	if c, err := r.Cookie(p.cookie); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func (p *Passes) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     p.cookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(p.ttl / time.Second),
	})
}
