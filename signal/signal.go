// Package signal is the client side of the signaling channel: one authenticated
// WebSocket that carries correlated commands and server-pushed events.
package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"studycall/metric"
	"studycall/pkg/socket"
	"studycall/types/event"
	"studycall/types/request"
	"studycall/types/response"
)

// State is the connection state of the client.
type State int

// Below are the client states.
const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Dialer opens the socket for the given endpoint. It must return an error
// wrapping ErrAuth when the server rejects the credentials.
type Dialer func(ctx context.Context, endpoint string) (socket.Socket, error)

// Handler receives one pushed event.
type Handler func(event.Event)

type reply struct {
	frame response.Frame
	err   error
}

type registration struct {
	id      int
	handler Handler
}

// Client is the signaling client.
type Client struct {
	config  Config
	metrics *metric.Metrics
	dial    Dialer
	now     func() time.Time

	// connMu serializes Connect and Disconnect.
	connMu sync.Mutex

	mu       sync.Mutex
	state    State
	socket   socket.Socket
	nextID   int
	pending  map[int]chan reply
	handlers map[event.Kind][]registration
	nextReg  int
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the WebSocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		c.dial = d
	}
}

// New creates a new instance of Client.
func New(config Config, m *metric.Metrics, opts ...Option) *Client {
	c := &Client{
		config:   config,
		metrics:  m,
		now:      time.Now,
		pending:  make(map[int]chan reply),
		handlers: make(map[event.Kind][]registration),
	}
	c.dial = c.dialWebSocket
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens the channel with the session token. It does nothing when the
// client is already connected.
func (c *Client) Connect(ctx context.Context, token string) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	c.mu.Lock()
	if c.state == Connected {
		c.mu.Unlock()
		return nil
	}
	c.state = Connecting
	c.mu.Unlock()

	sock, err := c.open(ctx, token)
	if err != nil {
		c.mu.Lock()
		c.state = Disconnected
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.socket = sock
	c.state = Connected
	c.mu.Unlock()
	c.metrics.IncrementWebSocketConnections()

	log.Info().Str("url", c.config.URL).Msg("signaling connected")
	go c.receive(sock)
	return nil
}

func (c *Client) open(ctx context.Context, token string) (socket.Socket, error) {
	if err := checkToken(token, c.now()); err != nil {
		return nil, err
	}
	endpoint, err := url.Parse(c.config.URL)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", c.config.URL, ErrTransport)
	}
	q := endpoint.Query()
	q.Set("token", token)
	endpoint.RawQuery = q.Encode()

	sock, err := c.dial(ctx, endpoint.String())
	if err != nil {
		if errors.Is(err, ErrAuth) {
			return nil, err
		}
		return nil, fmt.Errorf("dial %s: %v: %w", c.config.URL, err, ErrTransport)
	}
	return sock, nil
}

func (c *Client) dialWebSocket(ctx context.Context, endpoint string) (socket.Socket, error) {
	sock, resp, err := socket.Dial(ctx, endpoint, c.config.HandshakeTimeout)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("handshake status %d: %w", resp.StatusCode, ErrAuth)
		}
		return nil, err
	}
	return sock, nil
}

// Disconnect closes the channel. Outstanding requests fail with ErrCancelled.
func (c *Client) Disconnect() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	sock := c.detach(nil, ErrCancelled)
	if sock == nil {
		return nil
	}
	err := sock.Close()
	c.dispatch(event.Disconnected{})
	return err
}

// detach forgets the current socket and fails every pending request with cause.
// When expect is not nil only that socket is detached. It returns nil when
// there was nothing to detach.
func (c *Client) detach(expect socket.Socket, cause error) socket.Socket {
	c.mu.Lock()
	sock := c.socket
	if sock == nil || (expect != nil && sock != expect) {
		c.mu.Unlock()
		return nil
	}
	c.socket = nil
	c.state = Disconnected
	pending := c.pending
	c.pending = make(map[int]chan reply)
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- reply{err: cause}
	}
	c.metrics.DecrementWebSocketConnections()
	return sock
}

// Request sends a command and waits for its acknowledgement payload.
func (c *Client) Request(ctx context.Context, command string, payload any) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", command, err)
	}

	c.mu.Lock()
	sock := c.socket
	if sock == nil {
		c.mu.Unlock()
		c.metrics.ObserveRequest(command, "not_connected")
		return nil, ErrNotConnected
	}
	c.nextID++
	id := c.nextID
	ch := make(chan reply, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	if err := sock.WriteJSON(request.Common{RequestID: id, Type: command, Payload: raw}); err != nil {
		c.forget(id)
		c.metrics.ObserveRequest(command, "transport")
		return nil, fmt.Errorf("send %s: %v: %w", command, err, ErrTransport)
	}

	timer := time.NewTimer(c.config.RequestTimeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		if r.err != nil {
			c.metrics.ObserveRequest(command, "cancelled")
			return nil, fmt.Errorf("%s: %w", command, r.err)
		}
		if r.frame.Error != nil {
			c.metrics.ObserveRequest(command, "server_error")
			return nil, &ServerError{Kind: r.frame.Error.Kind, Message: r.frame.Error.Message}
		}
		c.metrics.ObserveRequest(command, "ok")
		return r.frame.Payload, nil
	case <-timer.C:
		c.forget(id)
		c.metrics.ObserveRequest(command, "timeout")
		return nil, fmt.Errorf("%s after %s: %w", command, c.config.RequestTimeout, ErrTimeout)
	case <-ctx.Done():
		c.forget(id)
		c.metrics.ObserveRequest(command, "cancelled")
		return nil, fmt.Errorf("%s: %v: %w", command, ctx.Err(), ErrCancelled)
	}
}

// Emit sends a command that the server does not acknowledge.
func (c *Client) Emit(command string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", command, err)
	}

	c.mu.Lock()
	sock := c.socket
	c.mu.Unlock()
	if sock == nil {
		return ErrNotConnected
	}
	if err := sock.WriteJSON(request.Common{Type: command, Payload: raw}); err != nil {
		return fmt.Errorf("send %s: %v: %w", command, err, ErrTransport)
	}
	return nil
}

func (c *Client) forget(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

// On registers a handler for one event kind. Handlers run on the receiving
// goroutine in the order events arrive. The returned function unregisters it.
func (c *Client) On(kind event.Kind, handler Handler) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextReg++
	id := c.nextReg
	c.handlers[kind] = append(c.handlers[kind], registration{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			regs := c.handlers[kind]
			for i, r := range regs {
				if r.id == id {
					c.handlers[kind] = append(regs[:i:i], regs[i+1:]...)
					return
				}
			}
		})
	}
}

// receive reads frames until the socket fails.
func (c *Client) receive(sock socket.Socket) {
	for {
		var frame response.Frame
		if err := sock.ReadJSON(&frame); err != nil {
			c.lost(sock, err)
			return
		}

		if frame.IsEvent() {
			ev, err := event.Decode(frame.Event, frame.Payload)
			if err != nil {
				log.Warn().Err(err).Msg("error occurs in decoding event")
				continue
			}
			c.dispatch(ev)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[frame.RequestID]
		delete(c.pending, frame.RequestID)
		c.mu.Unlock()
		if !ok {
			log.Debug().Int("request_id", frame.RequestID).Msg("acknowledgement for unknown request")
			continue
		}
		ch <- reply{frame: frame}
	}
}

// lost handles a read failure. It is a no-op when the socket was already
// detached by Disconnect.
func (c *Client) lost(sock socket.Socket, cause error) {
	if detached := c.detach(sock, ErrTransport); detached == nil {
		return
	}
	log.Warn().Err(cause).Msg("signaling connection lost")
	_ = sock.Close()
	c.dispatch(event.Disconnected{Err: fmt.Errorf("%v: %w", cause, ErrTransport)})
}

func (c *Client) dispatch(ev event.Event) {
	c.mu.Lock()
	regs := append([]registration(nil), c.handlers[ev.Kind()]...)
	c.mu.Unlock()

	for _, r := range regs {
		r.handler(ev)
	}
}
