package peer

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// Event is published by the manager for the coordinator.
type Event interface {
	RemoteUserID() string
}

// RemoteStreamAdded tells that the first remote track of a session arrived.
// It is published once per session; later tracks join the same stream.
type RemoteStreamAdded struct {
	UserID string
	Stream *RemoteStream
}

// StateChanged tells that the connection of a session changed state. A failed
// session is not closed by the manager. Generation tells which connection of
// the session changed, see Manager.Generation.
type StateChanged struct {
	UserID     string
	State      webrtc.PeerConnectionState
	Generation uint64
}

// RemoteUserID returns the user the event is about.
func (e RemoteStreamAdded) RemoteUserID() string { return e.UserID }

// RemoteUserID returns the user the event is about.
func (e StateChanged) RemoteUserID() string { return e.UserID }

// RemoteStream is the set of tracks received from one remote participant.
type RemoteStream struct {
	userID string

	mu      sync.Mutex
	tracks  []RemoteTrack
	subs    map[int]func(RemoteTrack)
	nextSub int
}

func newRemoteStream(userID string) *RemoteStream {
	return &RemoteStream{
		userID: userID,
		subs:   make(map[int]func(RemoteTrack)),
	}
}

// UserID returns the remote user the stream belongs to.
func (s *RemoteStream) UserID() string {
	return s.userID
}

// Tracks returns the tracks received so far.
func (s *RemoteStream) Tracks() []RemoteTrack {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RemoteTrack(nil), s.tracks...)
}

// Subscribe calls fn for every track already received and for every later
// one. The returned function stops later calls.
func (s *RemoteStream) Subscribe(fn func(RemoteTrack)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	existing := append([]RemoteTrack(nil), s.tracks...)
	s.mu.Unlock()

	for _, t := range existing {
		fn(t)
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *RemoteStream) add(track RemoteTrack) {
	s.mu.Lock()
	s.tracks = append(s.tracks, track)
	subs := make([]func(RemoteTrack), 0, len(s.subs))
	for id := 1; id <= s.nextSub; id++ {
		if fn, ok := s.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(track)
	}
}
