package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateNonce returns 128 random bits, URL-safe encoded. It returns ""
// if the system random source fails.
func GenerateNonce() string {
	return randomString(16)
}

// GenerateSecret returns a 256-bit signing key.
func GenerateSecret() string {
	return randomString(32)
}

func randomString(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
