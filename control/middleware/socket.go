// Package middleware contains common middleware functions for HTTP handlers.
package middleware

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"studycall/pkg/socket"
)

// Processor serves one upgraded websocket until it is done with it.
type Processor interface {
	Process(s socket.Socket) error
}

// Socket upgrades websocket requests and hands them to a processor.
type Socket struct {
	processor Processor
}

// NewSocket creates a new Socket middleware.
func NewSocket(processor Processor) *Socket {
	return &Socket{
		processor: processor,
	}
}

// Intercept processes websocket requests. Other requests go to the next handler.
func (s *Socket) Intercept(next http.Handler) http.Handler {
	p := s.processor
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !websocket.IsWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}
		ws, err := socket.New(w, r)
		if err != nil {
			log.Warn().Err(err).Msg("failed to create websocket")
			return
		}
		defer func() {
			if err := ws.Close(); err != nil {
				log.Debug().Err(err).Msg("failed to close websocket")
			}
		}()
		if err := p.Process(ws); err != nil {
			log.Debug().Err(err).Msg("websocket closed with error")
		}
	})
}
