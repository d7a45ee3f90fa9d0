// Package playback plays the audio of remote participants. Playback may be
// held back until the user interacts, the way browsers gate autoplay.
package playback

import (
	"errors"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"studycall/metric"
	"studycall/peer"
)

// State is the playback state of one attachment.
type State string

// Below are the attachment states.
const (
	StatePending State = "pending-user-gesture"
	StatePlaying State = "playing"
	StateFailed  State = "failed"
	StateClosed  State = "closed"
)

// Attachment binds one remote audio track to an output.
type Attachment struct {
	userID   string
	track    peer.RemoteTrack
	out      Output
	gestures Gestures
	metrics  *metric.Metrics

	mu            sync.Mutex
	state         State
	cancelGesture func()
	done          chan struct{}
}

// Attach starts playing track on out. When the output asks for a user gesture
// the attachment waits for the next one and tries again.
func Attach(userID string, track peer.RemoteTrack, out Output, gestures Gestures, m *metric.Metrics) *Attachment {
	a := &Attachment{
		userID:   userID,
		track:    track,
		out:      out,
		gestures: gestures,
		metrics:  m,
		done:     make(chan struct{}),
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.start()
	return a
}

// start tries the output. a.mu must be held.
func (a *Attachment) start() {
	err := a.out.Start()
	switch {
	case err == nil:
		a.state = StatePlaying
		go a.pump()
	case errors.Is(err, ErrGestureRequired):
		a.state = StatePending
		a.cancelGesture = a.gestures.Once(a.onGesture)
		log.Debug().Str("peer", a.userID).Msg("remote audio waits for a user gesture")
	default:
		a.state = StateFailed
		log.Warn().Err(err).Str("peer", a.userID).Msg("failed to start remote audio")
	}
}

func (a *Attachment) onGesture() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StatePending {
		return
	}
	a.cancelGesture = nil
	a.start()
}

func (a *Attachment) pump() {
	defer close(a.done)
	for {
		p, _, err := a.track.ReadRTP()
		if err != nil {
			return
		}
		a.metrics.AddNetworkUsage("inbound", len(p.Payload))

		if !a.write(p) {
			return
		}
	}
}

// write hands p to the output unless the attachment was closed. Close takes
// a.mu too, so the output is never written after it was closed.
func (a *Attachment) write(p *rtp.Packet) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateClosed {
		return false
	}
	if err := a.out.Write(p); err != nil {
		log.Warn().Err(err).Str("peer", a.userID).Msg("failed to write remote audio")
	}
	return true
}

// State returns the playback state.
func (a *Attachment) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Close stops playback and removes the gesture listener if one is installed.
func (a *Attachment) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateClosed {
		return
	}
	if a.cancelGesture != nil {
		a.cancelGesture()
		a.cancelGesture = nil
	}
	a.state = StateClosed
	if err := a.out.Close(); err != nil {
		log.Warn().Err(err).Str("peer", a.userID).Msg("failed to close remote audio output")
	}
}

// Sink keeps one attachment per remote audio track of the current call.
type Sink struct {
	newOutput OutputFactory
	gestures  Gestures
	metrics   *metric.Metrics

	mu      sync.Mutex
	streams map[string]*sinkEntry
}

type sinkEntry struct {
	stream      *peer.RemoteStream
	unsubscribe func()

	mu          sync.Mutex
	closed      bool
	attachments []*Attachment
}

// NewSink creates a new Sink instance.
func NewSink(newOutput OutputFactory, gestures Gestures, m *metric.Metrics) *Sink {
	return &Sink{
		newOutput: newOutput,
		gestures:  gestures,
		metrics:   m,
		streams:   make(map[string]*sinkEntry),
	}
}

// Sync attaches the audio of streams that are new and closes the attachments
// of streams that are gone.
func (s *Sink) Sync(streams map[string]*peer.RemoteStream) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, e := range s.streams {
		if streams[userID] != e.stream {
			s.detach(userID, e)
		}
	}
	for userID, stream := range streams {
		if _, ok := s.streams[userID]; ok {
			continue
		}
		e := &sinkEntry{stream: stream}
		s.streams[userID] = e
		e.unsubscribe = stream.Subscribe(func(track peer.RemoteTrack) {
			s.attach(userID, e, track)
		})
	}
}

func (s *Sink) attach(userID string, e *sinkEntry, track peer.RemoteTrack) {
	if track.Kind() != webrtc.RTPCodecTypeAudio {
		return
	}
	out, err := s.newOutput(userID, track.ID())
	if err != nil {
		log.Warn().Err(err).Str("peer", userID).Msg("failed to create remote audio output")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		_ = out.Close()
		return
	}
	e.attachments = append(e.attachments, Attach(userID, track, out, s.gestures, s.metrics))
}

// detach closes the attachments of one user. s.mu must be held.
func (s *Sink) detach(userID string, e *sinkEntry) {
	e.unsubscribe()
	e.mu.Lock()
	e.closed = true
	for _, a := range e.attachments {
		a.Close()
	}
	e.mu.Unlock()
	delete(s.streams, userID)
}

// Attachments returns the attachments of a user.
func (s *Sink) Attachments(userID string) []*Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.streams[userID]
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Attachment(nil), e.attachments...)
}

// Close closes every attachment.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, e := range s.streams {
		s.detach(userID, e)
	}
}
