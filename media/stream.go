package media

import (
	"sync"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pion/webrtc/v4"
)

// Change tells that the outbound track of one media kind changed. Track is nil
// when nothing is sent for that kind anymore.
type Change struct {
	Kind  webrtc.RTPCodecType
	Track *Track
}

// Stream is the set of local tracks of the current call.
type Stream struct {
	id string

	mu       sync.Mutex
	tracks   map[Kind]*Track
	outbound map[webrtc.RTPCodecType]*Track
	subs     map[int]func(Change)
	nextSub  int
}

func newStream() *Stream {
	return &Stream{
		id:       shortuuid.New(),
		tracks:   make(map[Kind]*Track),
		outbound: make(map[webrtc.RTPCodecType]*Track),
		subs:     make(map[int]func(Change)),
	}
}

// ID returns the local id of the stream.
func (s *Stream) ID() string {
	return s.id
}

// Track returns the track of the given kind.
func (s *Stream) Track(kind Kind) (*Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tracks[kind]
	return t, ok
}

// Tracks returns every live track in audio, video, screen order.
func (s *Stream) Tracks() []*Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tracks []*Track
	for _, kind := range []Kind{Audio, Video, Screen} {
		if t, ok := s.tracks[kind]; ok {
			tracks = append(tracks, t)
		}
	}
	return tracks
}

// Outbound returns the track to send for the given media kind, or nil. Audio
// is the microphone when enabled; video is the screen, else the camera when
// enabled.
func (s *Stream) Outbound(kind webrtc.RTPCodecType) *Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectOutbound(kind)
}

// Held returns the live track of the given media kind whether it is sent or
// not, or nil. Video is the screen, else the camera.
func (s *Stream) Held(kind webrtc.RTPCodecType) *Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case webrtc.RTPCodecTypeAudio:
		if t, ok := s.tracks[Audio]; ok && !t.Stopped() {
			return t
		}
	case webrtc.RTPCodecTypeVideo:
		if t, ok := s.tracks[Screen]; ok && !t.Stopped() {
			return t
		}
		if t, ok := s.tracks[Video]; ok && !t.Stopped() {
			return t
		}
	}
	return nil
}

func (s *Stream) selectOutbound(kind webrtc.RTPCodecType) *Track {
	switch kind {
	case webrtc.RTPCodecTypeAudio:
		if t, ok := s.tracks[Audio]; ok && t.Enabled() {
			return t
		}
	case webrtc.RTPCodecTypeVideo:
		if t, ok := s.tracks[Screen]; ok && !t.Stopped() {
			return t
		}
		if t, ok := s.tracks[Video]; ok && t.Enabled() {
			return t
		}
	}
	return nil
}

// OnChange registers fn for outbound changes. The returned function removes it.
func (s *Stream) OnChange(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Stream) put(track *Track) {
	s.mu.Lock()
	s.tracks[track.Kind()] = track
	s.mu.Unlock()
	s.refresh()
}

func (s *Stream) remove(kind Kind) *Track {
	s.mu.Lock()
	t := s.tracks[kind]
	delete(s.tracks, kind)
	s.mu.Unlock()
	s.refresh()
	return t
}

func (s *Stream) clear() []*Track {
	tracks := s.Tracks()
	s.mu.Lock()
	s.tracks = make(map[Kind]*Track)
	s.mu.Unlock()
	s.refresh()

	s.mu.Lock()
	s.subs = make(map[int]func(Change))
	s.mu.Unlock()
	return tracks
}

// refresh recomputes the outbound slots and notifies subscribers of the slots
// that changed, audio first.
func (s *Stream) refresh() {
	s.mu.Lock()
	var changes []Change
	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
		next := s.selectOutbound(kind)
		if s.outbound[kind] == next {
			continue
		}
		s.outbound[kind] = next
		changes = append(changes, Change{Kind: kind, Track: next})
	}
	subs := make([]func(Change), 0, len(s.subs))
	for id := 1; id <= s.nextSub; id++ {
		if fn, ok := s.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	for _, change := range changes {
		for _, fn := range subs {
			fn(change)
		}
	}
}
