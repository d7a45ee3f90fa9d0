package peer

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"studycall/broker"
	"studycall/media"
	"studycall/metric"
)

// SessionState is the negotiation state of one session.
type SessionState string

// Below are the session states.
const (
	StateNew           SessionState = "new"
	StateOfferSent     SessionState = "offer-sent"
	StateOfferReceived SessionState = "offer-received"
	StateAnswered      SessionState = "answered"
	StateConnected     SessionState = "connected"
	StateFailed        SessionState = "failed"
	StateClosed        SessionState = "closed"
)

// IceHandler receives the local ICE candidates of one session.
type IceHandler func(candidate webrtc.ICECandidateInit)

type session struct {
	remoteUserID string
	conn         Connection
	generation   uint64
	ice          *iceRelay
	state        SessionState
	senders      map[webrtc.RTPCodecType]Sender
	parked       map[webrtc.RTPCodecType]bool
	pendingOffer *webrtc.SessionDescription
	remoteSet    bool
	candidates   []webrtc.ICECandidateInit
	remote       *RemoteStream
	announced    bool
}

// Manager owns the sessions of the current call, keyed by remote user id.
type Manager struct {
	localUserID   string
	newConnection Factory
	events        broker.Publisher[Event]
	metrics       *metric.Metrics

	mu          sync.Mutex
	sessions    map[string]*session
	generation  uint64
	stream      *media.Stream
	unsubscribe func()
}

// New creates a new Manager instance.
func New(localUserID string, factory Factory, events broker.Publisher[Event], m *metric.Metrics) *Manager {
	return &Manager{
		localUserID:   localUserID,
		newConnection: factory,
		events:        events,
		metrics:       m,
		sessions:      make(map[string]*session),
	}
}

// SetLocalStream sets the stream whose outbound tracks every session sends.
// Later outbound changes replace the sender tracks without renegotiation.
func (m *Manager) SetLocalStream(stream *media.Stream) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == stream {
		return
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.stream = stream
	if stream == nil {
		return
	}

	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
		track := stream.Outbound(kind)
		for _, s := range m.sessions {
			s.replace(kind, track)
		}
	}
	m.unsubscribe = stream.OnChange(func(change media.Change) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.stream != stream {
			return
		}
		for _, s := range m.sessions {
			s.replace(change.Kind, change.Track)
		}
	})
}

func (s *session) replace(kind webrtc.RTPCodecType, track *media.Track) {
	sender, ok := s.senders[kind]
	if !ok {
		return
	}
	var local webrtc.TrackLocal
	if track != nil {
		local = track.Local()
	}
	if err := sender.ReplaceTrack(local); err != nil {
		log.Warn().Err(err).Str("peer", s.remoteUserID).Str("kind", kind.String()).Msg("failed to replace track")
	}
}

// State returns the state of the session with the given user.
func (m *Manager) State(remoteUserID string) (SessionState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[remoteUserID]
	if !ok {
		return "", false
	}
	return s.state, true
}

// Peers returns the remote user ids with a session.
func (m *Manager) Peers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// CreateOffer opens a session with the given user and returns the offer to send.
// Asking again while the offer is outstanding returns the same offer.
func (m *Manager) CreateOffer(ctx context.Context, remoteUserID string, onIce IceHandler) (webrtc.SessionDescription, error) {
	if err := ctx.Err(); err != nil {
		return webrtc.SessionDescription{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[remoteUserID]; ok {
		if s.state == StateOfferSent && s.pendingOffer != nil {
			return *s.pendingOffer, nil
		}
		return webrtc.SessionDescription{}, fmt.Errorf("%s in state %s: %w", remoteUserID, s.state, ErrSessionExists)
	}

	s, err := m.open(remoteUserID, onIce)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	// The remote side has no session before it gets the offer.
	s.ice.hold()
	offer, err := s.conn.CreateOffer()
	if err == nil {
		err = s.conn.SetLocalDescription(offer)
	}
	if err != nil {
		m.drop(s)
		return webrtc.SessionDescription{}, fmt.Errorf("offer to %s: %w", remoteUserID, err)
	}
	s.park(m.stream)
	s.state = StateOfferSent
	s.pendingOffer = &offer
	log.Debug().Str("peer", remoteUserID).Msg("offer created")
	return offer, nil
}

// OfferSent releases the local candidates held since the offer to the given
// user was created. Later candidates are relayed as they are gathered.
func (m *Manager) OfferSent(remoteUserID string) {
	m.mu.Lock()
	var relay *iceRelay
	if s, ok := m.sessions[remoteUserID]; ok {
		relay = s.ice
	}
	m.mu.Unlock()
	if relay != nil {
		relay.release()
	}
}

// HandleOffer applies a remote offer and returns the answer to send. When both
// sides offered at once the smaller user id keeps its offer: the winner gets
// ErrGlare and the loser discards its own offer before answering.
func (m *Manager) HandleOffer(ctx context.Context, remoteUserID string, offer webrtc.SessionDescription, onIce IceHandler) (webrtc.SessionDescription, error) {
	if err := ctx.Err(); err != nil {
		return webrtc.SessionDescription{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, exists := m.sessions[remoteUserID]
	if exists && s.state == StateOfferSent {
		if m.localUserID < remoteUserID {
			log.Debug().Str("peer", remoteUserID).Msg("offer collision, keeping local offer")
			return webrtc.SessionDescription{}, ErrGlare
		}
		log.Debug().Str("peer", remoteUserID).Msg("offer collision, answering remote offer")
		if err := m.rollback(s, onIce); err != nil {
			m.drop(s)
			return webrtc.SessionDescription{}, fmt.Errorf("roll back offer to %s: %w", remoteUserID, err)
		}
	}
	if !exists {
		var err error
		if s, err = m.open(remoteUserID, onIce); err != nil {
			return webrtc.SessionDescription{}, err
		}
	}

	s.state = StateOfferReceived
	answer, err := m.answer(s, offer)
	if err != nil {
		if !exists {
			m.drop(s)
		}
		return webrtc.SessionDescription{}, fmt.Errorf("answer %s: %w", remoteUserID, err)
	}
	s.state = StateAnswered
	return answer, nil
}

func (m *Manager) answer(s *session, offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if err := s.conn.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	s.remoteSet = true
	s.flush()

	answer, err := s.conn.CreateAnswer()
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := s.conn.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	s.park(m.stream)
	return answer, nil
}

// rollback discards the local offer of s. pion cannot roll a local offer back,
// so the connection is replaced by a fresh one with the same tracks. Candidates
// buffered for the remote side are kept.
func (m *Manager) rollback(s *session, onIce IceHandler) error {
	old := s.conn
	if err := m.attach(s, onIce); err != nil {
		return err
	}
	if err := old.Close(); err != nil {
		log.Warn().Err(err).Str("peer", s.remoteUserID).Msg("failed to close rolled back connection")
	}
	s.pendingOffer = nil
	s.remoteSet = false
	return nil
}

// HandleAnswer applies the remote answer to the outstanding offer.
func (m *Manager) HandleAnswer(remoteUserID string, answer webrtc.SessionDescription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[remoteUserID]
	if !ok {
		return fmt.Errorf("answer from %s: %w", remoteUserID, ErrUnknownPeer)
	}
	if s.state != StateOfferSent {
		return fmt.Errorf("answer from %s in state %s: %w", remoteUserID, s.state, ErrInvalidState)
	}
	if err := s.conn.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("answer from %s: %w", remoteUserID, err)
	}
	s.remoteSet = true
	s.pendingOffer = nil
	s.state = StateConnected
	s.flush()
	return nil
}

// HandleIceCandidate adds a remote candidate, holding it until the remote
// description is applied. Only ErrUnknownPeer is returned.
func (m *Manager) HandleIceCandidate(remoteUserID string, candidate webrtc.ICECandidateInit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[remoteUserID]
	if !ok {
		return fmt.Errorf("candidate from %s: %w", remoteUserID, ErrUnknownPeer)
	}
	if !s.remoteSet {
		s.candidates = append(s.candidates, candidate)
		return nil
	}
	if err := s.conn.AddICECandidate(candidate); err != nil {
		log.Warn().Err(err).Str("peer", remoteUserID).Msg("failed to add ice candidate")
	}
	return nil
}

func (s *session) flush() {
	for _, c := range s.candidates {
		if err := s.conn.AddICECandidate(c); err != nil {
			log.Warn().Err(err).Str("peer", s.remoteUserID).Msg("failed to add buffered ice candidate")
		}
	}
	s.candidates = nil
}

// Close closes the session with the given user. Unknown users are ignored.
func (m *Manager) Close(remoteUserID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[remoteUserID]; ok {
		m.drop(s)
	}
}

// CloseAll closes every session. It is safe to call more than once.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		m.drop(s)
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.stream = nil
}

// open creates a session, its connection and its senders. m.mu must be held.
func (m *Manager) open(remoteUserID string, onIce IceHandler) (*session, error) {
	if m.stream == nil {
		return nil, ErrNoLocalStream
	}
	s := &session{
		remoteUserID: remoteUserID,
		state:        StateNew,
		remote:       newRemoteStream(remoteUserID),
	}
	if err := m.attach(s, onIce); err != nil {
		return nil, err
	}
	m.sessions[remoteUserID] = s
	m.metrics.IncrementWebRTCConnections()
	return s, nil
}

// attach gives s a new connection carrying the current outbound tracks. A
// muted microphone or a camera turned off is attached all the same and parked
// once the local description is set. Slots without any track get a
// transceiver so the remote side may still send that kind.
func (m *Manager) attach(s *session, onIce IceHandler) error {
	conn, err := m.newConnection()
	if err != nil {
		return err
	}
	senders := make(map[webrtc.RTPCodecType]Sender)
	parked := make(map[webrtc.RTPCodecType]bool)
	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
		var sender Sender
		if track := m.stream.Outbound(kind); track != nil {
			sender, err = conn.AddTrack(track.Local())
		} else if track := m.stream.Held(kind); track != nil {
			sender, err = conn.AddTrack(track.Local())
			parked[kind] = true
		} else {
			sender, err = conn.AddTransceiver(kind)
		}
		if err != nil {
			_ = conn.Close()
			return err
		}
		senders[kind] = sender
	}

	relay := &iceRelay{handler: onIce}
	conn.OnICECandidate(relay.deliver)
	conn.OnTrack(func(track RemoteTrack) {
		m.onTrack(s, conn, track)
	})
	conn.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		m.onStateChange(s, conn, state)
	})
	m.generation++
	s.generation = m.generation
	s.conn = conn
	s.ice = relay
	s.senders = senders
	s.parked = parked
	return nil
}

// park stops sending the tracks that were attached only to be described.
func (s *session) park(stream *media.Stream) {
	for kind := range s.parked {
		s.replace(kind, stream.Outbound(kind))
	}
	s.parked = nil
}

func (m *Manager) onTrack(s *session, conn Connection, track RemoteTrack) {
	m.mu.Lock()
	if !m.current(s, conn) {
		m.mu.Unlock()
		return
	}
	announce := !s.announced
	s.announced = true
	stream := s.remote
	m.mu.Unlock()

	stream.add(track)
	if announce {
		m.events.Publish(RemoteStreamAdded{UserID: s.remoteUserID, Stream: stream})
	}
}

func (m *Manager) onStateChange(s *session, conn Connection, state webrtc.PeerConnectionState) {
	m.mu.Lock()
	if !m.current(s, conn) {
		m.mu.Unlock()
		return
	}
	switch state {
	case webrtc.PeerConnectionStateConnected:
		s.state = StateConnected
	case webrtc.PeerConnectionStateFailed:
		s.state = StateFailed
	}
	generation := s.generation
	m.mu.Unlock()

	log.Debug().Str("peer", s.remoteUserID).Str("state", state.String()).Msg("peer connection state changed")
	m.events.Publish(StateChanged{UserID: s.remoteUserID, State: state, Generation: generation})
}

// current reports whether conn is still the live connection of s.
func (m *Manager) current(s *session, conn Connection) bool {
	return m.sessions[s.remoteUserID] == s && s.conn == conn
}

// drop closes s and forgets it. m.mu must be held.
func (m *Manager) drop(s *session) {
	if m.sessions[s.remoteUserID] == s {
		delete(m.sessions, s.remoteUserID)
		m.metrics.DecrementWebRTCConnections()
	}
	s.state = StateClosed
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			log.Warn().Err(err).Str("peer", s.remoteUserID).Msg("failed to close peer connection")
		}
	}
}

// Generation returns the connection generation of the session with the given
// user. It changes whenever the session gets a new connection.
func (m *Manager) Generation(remoteUserID string) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[remoteUserID]
	if !ok {
		return 0, false
	}
	return s.generation, true
}

// RemoteStream returns the stream received from the given user, or nil when
// there is no session with that user.
func (m *Manager) RemoteStream(remoteUserID string) *RemoteStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[remoteUserID]; ok {
		return s.remote
	}
	return nil
}

// iceRelay forwards the local candidates of one connection. While held they
// are queued in gathering order.
type iceRelay struct {
	handler IceHandler

	mu      sync.Mutex
	holding bool
	held    []webrtc.ICECandidateInit
}

func (r *iceRelay) hold() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.holding = true
}

func (r *iceRelay) deliver(c webrtc.ICECandidateInit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.holding {
		r.held = append(r.held, c)
		return
	}
	if r.handler != nil {
		r.handler(c)
	}
}

func (r *iceRelay) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.holding {
		return
	}
	r.holding = false
	if r.handler != nil {
		for _, c := range r.held {
			r.handler(c)
		}
	}
	r.held = nil
}
