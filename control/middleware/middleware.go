// Package middleware contains common middleware functions for HTTP handlers.
package middleware

import "net/http"

// Interceptor is a middleware interface.
type Interceptor interface {
	Intercept(handlerFunc http.Handler) http.Handler
}

// Set applies multiple middleware to a handler. The middleware are applied in
// the order they are passed. For example: if Set(h, auth, cors, logger) is
// called, the request will first be logged, then CORS headers will be set, and
// finally the token is checked before h runs.
func Set(h http.Handler, m ...Interceptor) http.Handler {
	for _, i := range m {
		h = i.Intercept(h)
	}
	return h
}

// Chain adapts interceptors to the func(http.Handler) http.Handler form used by
// routers. Chain(a, b) runs b first, like Set.
func Chain(m ...Interceptor) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return Set(h, m...)
	}
}
