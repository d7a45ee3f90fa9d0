// Package peertest provides in-memory peer connections for tests.
package peertest

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"studycall/peer"
)

// ErrClosed is returned by a closed Connection.
var ErrClosed = errors.New("connection closed")

// Factory creates Connections and remembers them in creation order.
type Factory struct {
	mu    sync.Mutex
	conns []*Connection

	// Err makes New fail when set.
	Err error

	// Gather is gathered by every new connection while its local description
	// is set, before SetLocalDescription returns.
	Gather []webrtc.ICECandidateInit
}

// NewFactory creates a new Factory.
func NewFactory() *Factory {
	return &Factory{}
}

// New is a peer.Factory.
func (f *Factory) New() (peer.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	c := &Connection{id: len(f.conns) + 1, gather: f.Gather}
	f.conns = append(f.conns, c)
	return c, nil
}

// Connections returns every connection created so far.
func (f *Factory) Connections() []*Connection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Connection(nil), f.conns...)
}

// Last returns the most recent connection, or nil.
func (f *Factory) Last() *Connection {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.conns) == 0 {
		return nil
	}
	return f.conns[len(f.conns)-1]
}

// Sender is a recorded sender.
type Sender struct {
	mu          sync.Mutex
	kind        webrtc.RTPCodecType
	track       webrtc.TrackLocal
	placeholder bool
}

// ReplaceTrack swaps the sent track.
func (s *Sender) ReplaceTrack(track webrtc.TrackLocal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if track != nil && track.Kind() != s.kind {
		return fmt.Errorf("replace %s sender with %s track", s.kind, track.Kind())
	}
	s.track = track
	s.placeholder = false
	return nil
}

// Kind returns the media kind of the sender.
func (s *Sender) Kind() webrtc.RTPCodecType {
	return s.kind
}

// Track returns the sent track, or nil.
func (s *Sender) Track() webrtc.TrackLocal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track
}

// Placeholder reports whether the sender was created without a track and never
// got one.
func (s *Sender) Placeholder() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placeholder
}

// Connection records what a session does with it. Callbacks only run when the
// test triggers them.
type Connection struct {
	id     int
	gather []webrtc.ICECandidateInit

	mu         sync.Mutex
	described  []webrtc.TrackLocal
	senders    []*Sender
	local      *webrtc.SessionDescription
	remote     *webrtc.SessionDescription
	candidates []webrtc.ICECandidateInit
	closed     bool
	onIce      func(webrtc.ICECandidateInit)
	onTrack    func(peer.RemoteTrack)
	onState    func(webrtc.PeerConnectionState)
}

// ID returns the creation index of the connection, starting at 1.
func (c *Connection) ID() int {
	return c.id
}

// AddTrack implements peer.Connection.
func (c *Connection) AddTrack(track webrtc.TrackLocal) (peer.Sender, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := &Sender{kind: track.Kind(), track: track}
	c.senders = append(c.senders, s)
	return s, nil
}

// AddTransceiver implements peer.Connection.
func (c *Connection) AddTransceiver(kind webrtc.RTPCodecType) (peer.Sender, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := &Sender{kind: kind, placeholder: true}
	c.senders = append(c.senders, s)
	return s, nil
}

// CreateOffer implements peer.Connection.
func (c *Connection) CreateOffer() (webrtc.SessionDescription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return webrtc.SessionDescription{}, ErrClosed
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: fmt.Sprintf("offer-%d", c.id)}, nil
}

// CreateAnswer implements peer.Connection.
func (c *Connection) CreateAnswer() (webrtc.SessionDescription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return webrtc.SessionDescription{}, ErrClosed
	}
	if c.remote == nil || c.remote.Type != webrtc.SDPTypeOffer {
		return webrtc.SessionDescription{}, errors.New("answer without remote offer")
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: fmt.Sprintf("answer-%d", c.id)}, nil
}

// SetLocalDescription implements peer.Connection. The candidates of
// Factory.Gather are delivered before it returns.
func (c *Connection) SetLocalDescription(desc webrtc.SessionDescription) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.local = &desc
	c.described = c.described[:0]
	for _, s := range c.senders {
		if t := s.Track(); t != nil {
			c.described = append(c.described, t)
		}
	}
	fn := c.onIce
	c.mu.Unlock()

	if fn != nil {
		for _, candidate := range c.gather {
			fn(candidate)
		}
	}
	return nil
}

// Described returns the tracks that were attached when the local description
// was set.
func (c *Connection) Described() []webrtc.TrackLocal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]webrtc.TrackLocal(nil), c.described...)
}

// SetRemoteDescription implements peer.Connection.
func (c *Connection) SetRemoteDescription(desc webrtc.SessionDescription) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if desc.Type == webrtc.SDPTypeAnswer && (c.local == nil || c.local.Type != webrtc.SDPTypeOffer) {
		return errors.New("answer without local offer")
	}
	c.remote = &desc
	return nil
}

// AddICECandidate implements peer.Connection.
func (c *Connection) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remote == nil {
		return errors.New("candidate before remote description")
	}
	c.candidates = append(c.candidates, candidate)
	return nil
}

// OnICECandidate implements peer.Connection.
func (c *Connection) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onIce = fn
}

// OnTrack implements peer.Connection.
func (c *Connection) OnTrack(fn func(peer.RemoteTrack)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTrack = fn
}

// OnConnectionStateChange implements peer.Connection.
func (c *Connection) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = fn
}

// Close implements peer.Connection.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether Close was called.
func (c *Connection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Senders returns the senders in the order they were added.
func (c *Connection) Senders() []*Sender {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Sender(nil), c.senders...)
}

// Local returns the local description, or nil.
func (c *Connection) Local() *webrtc.SessionDescription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local
}

// Remote returns the remote description, or nil.
func (c *Connection) Remote() *webrtc.SessionDescription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remote
}

// Candidates returns the remote candidates applied so far, in order.
func (c *Connection) Candidates() []webrtc.ICECandidateInit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]webrtc.ICECandidateInit(nil), c.candidates...)
}

// GatherCandidate delivers a local candidate to the session.
func (c *Connection) GatherCandidate(candidate webrtc.ICECandidateInit) {
	c.mu.Lock()
	fn := c.onIce
	c.mu.Unlock()
	if fn != nil {
		fn(candidate)
	}
}

// ReceiveTrack delivers a remote track to the session.
func (c *Connection) ReceiveTrack(track peer.RemoteTrack) {
	c.mu.Lock()
	fn := c.onTrack
	c.mu.Unlock()
	if fn != nil {
		fn(track)
	}
}

// SetState reports a connection state change to the session.
func (c *Connection) SetState(state webrtc.PeerConnectionState) {
	c.mu.Lock()
	fn := c.onState
	c.mu.Unlock()
	if fn != nil {
		fn(state)
	}
}

// RemoteTrack is a remote track fed by the test.
type RemoteTrack struct {
	id       string
	streamID string
	kind     webrtc.RTPCodecType
	packets  chan *rtp.Packet
	once     sync.Once
}

// NewRemoteTrack creates a remote track of the given kind.
func NewRemoteTrack(id string, kind webrtc.RTPCodecType) *RemoteTrack {
	return &RemoteTrack{
		id:       id,
		streamID: "remote",
		kind:     kind,
		packets:  make(chan *rtp.Packet, 64),
	}
}

// ID implements peer.RemoteTrack.
func (t *RemoteTrack) ID() string { return t.id }

// StreamID implements peer.RemoteTrack.
func (t *RemoteTrack) StreamID() string { return t.streamID }

// Kind implements peer.RemoteTrack.
func (t *RemoteTrack) Kind() webrtc.RTPCodecType { return t.kind }

// ReadRTP implements peer.RemoteTrack. It returns io.EOF after End.
func (t *RemoteTrack) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	p, ok := <-t.packets
	if !ok {
		return nil, nil, io.EOF
	}
	return p, interceptor.Attributes{}, nil
}

// Push queues a packet for ReadRTP.
func (t *RemoteTrack) Push(p *rtp.Packet) {
	t.packets <- p
}

// End makes ReadRTP return io.EOF once queued packets are read.
func (t *RemoteTrack) End() {
	t.once.Do(func() {
		close(t.packets)
	})
}
