// Package signaltest provides an in-process signaling server for tests.
package signaltest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"studycall/pkg/socket"
	"studycall/types/event"
	"studycall/types/request"
	"studycall/types/response"
)

// Responder builds the acknowledgement of an acked command. Returning nil
// leaves the command unanswered.
type Responder func(req request.Common) *response.Frame

// OK acknowledges every command with {"success": true}.
func OK(_ request.Common) *response.Frame {
	return &response.Frame{Payload: json.RawMessage(`{"success":true}`)}
}

// Server accepts signaling connections and records every command it receives.
type Server struct {
	server *httptest.Server

	mu       sync.Mutex
	respond  Responder
	reject   int
	sockets  []*socket.WebSocket
	tokens   []string
	received []request.Common
	notify   chan request.Common
}

// NewServer starts a server answering acked commands with respond.
func NewServer(respond Responder) *Server {
	s := &Server{
		respond: respond,
		notify:  make(chan request.Common, 256),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// URL returns the ws:// endpoint of the server.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http")
}

// Close drops every connection and stops the server.
func (s *Server) Close() {
	s.DropAll()
	s.server.Close()
}

// Reject makes the next handshakes fail with the given HTTP status. Zero
// accepts again.
func (s *Server) Reject(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject = status
}

// SetResponder replaces the acknowledgement builder.
func (s *Server) SetResponder(respond Responder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.respond = respond
}

// Tokens returns the tokens presented by every accepted connection.
func (s *Server) Tokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tokens...)
}

// Received returns a channel of incoming commands in arrival order.
func (s *Server) Received() <-chan request.Common {
	return s.notify
}

// Commands returns every command received so far.
func (s *Server) Commands() []request.Common {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]request.Common(nil), s.received...)
}

// Push sends an event to every connected client.
func (s *Server) Push(kind event.Kind, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	sockets := append([]*socket.WebSocket(nil), s.sockets...)
	s.mu.Unlock()

	for _, sock := range sockets {
		if err := sock.WriteJSON(response.Frame{Event: string(kind), Payload: raw}); err != nil {
			return err
		}
	}
	return nil
}

// PushRaw sends an arbitrary frame to every connected client.
func (s *Server) PushRaw(frame response.Frame) error {
	s.mu.Lock()
	sockets := append([]*socket.WebSocket(nil), s.sockets...)
	s.mu.Unlock()

	for _, sock := range sockets {
		if err := sock.WriteJSON(frame); err != nil {
			return err
		}
	}
	return nil
}

// DropAll closes every connection from the server side.
func (s *Server) DropAll() {
	s.mu.Lock()
	sockets := s.sockets
	s.sockets = nil
	s.mu.Unlock()

	for _, sock := range sockets {
		_ = sock.Close()
	}
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	reject := s.reject
	s.mu.Unlock()
	if reject != 0 {
		http.Error(w, http.StatusText(reject), reject)
		return
	}

	sock, err := socket.New(w, r)
	if err != nil {
		log.Error().Err(err).Msg("failed to create WebSocket")
		return
	}
	s.mu.Lock()
	s.sockets = append(s.sockets, sock)
	s.tokens = append(s.tokens, r.URL.Query().Get("token"))
	s.mu.Unlock()

	for {
		var req request.Common
		if err := sock.ReadJSON(&req); err != nil {
			return
		}

		s.mu.Lock()
		s.received = append(s.received, req)
		respond := s.respond
		s.mu.Unlock()
		select {
		case s.notify <- req:
		default:
		}

		if req.RequestID == 0 || respond == nil {
			continue
		}
		frame := respond(req)
		if frame == nil {
			continue
		}
		frame.RequestID = req.RequestID
		if err := sock.WriteJSON(frame); err != nil {
			return
		}
	}
}
