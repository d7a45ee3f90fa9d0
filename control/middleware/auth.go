// Package middleware contains common middleware functions for HTTP handlers.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Auth checks the bearer token of control requests.
type Auth struct {
	token string
}

// NewAuth creates a new Auth middleware. An empty token lets every request in.
func NewAuth(token string) *Auth {
	return &Auth{token: token}
}

// Intercept rejects requests without the expected bearer token.
func (a *Auth) Intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.token == "" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		given := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if given == "" {
			// browsers cannot set headers on websocket upgrades
			given = r.URL.Query().Get("token")
		}
		if subtle.ConstantTimeCompare([]byte(given), []byte(a.token)) != 1 {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
