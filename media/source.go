package media

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
)

// Constraints selects the kinds of user media to acquire.
type Constraints struct {
	Audio bool
	Video bool
}

// Source acquires capture tracks from the platform.
type Source interface {
	// RegisterCodecs registers the codecs the source encodes with.
	RegisterCodecs(m *webrtc.MediaEngine) error

	// UserMedia opens the microphone and/or camera. It returns every requested
	// track or none.
	UserMedia(ctx context.Context, c Constraints) ([]*Track, error)

	// DisplayMedia opens a screen capture track.
	DisplayMedia(ctx context.Context) (*Track, error)
}

// StaticSource produces sample-based tracks without touching any device. It is
// used where no capture driver exists and in tests.
type StaticSource struct {
	mu sync.Mutex

	// Microphone, Camera and Display tell which devices exist.
	Microphone bool
	Camera     bool
	Display    bool

	// Deny makes every user media request fail with ErrPermissionDenied.
	Deny bool

	// DismissDisplay makes display requests fail as if the picker was closed.
	DismissDisplay bool

	live int
}

// NewStaticSource creates a StaticSource where every device exists.
func NewStaticSource() *StaticSource {
	return &StaticSource{
		Microphone: true,
		Camera:     true,
		Display:    true,
	}
}

// Live returns the number of tracks handed out and not yet stopped.
func (s *StaticSource) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// RegisterCodecs registers the default pion codecs.
func (s *StaticSource) RegisterCodecs(m *webrtc.MediaEngine) error {
	return m.RegisterDefaultCodecs()
}

// UserMedia returns static audio and video tracks.
func (s *StaticSource) UserMedia(ctx context.Context, c Constraints) ([]*Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrCancelled)
	}
	s.mu.Lock()
	deny, mic, cam := s.Deny, s.Microphone, s.Camera
	s.mu.Unlock()
	if deny {
		return nil, ErrPermissionDenied
	}

	var tracks []*Track
	release := func() {
		for _, t := range tracks {
			_ = t.Stop()
		}
	}
	if c.Audio {
		if !mic {
			return nil, fmt.Errorf("no microphone: %w", ErrDeviceUnavailable)
		}
		t, err := s.newTrack(Audio, webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2})
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	if c.Video {
		if !cam {
			release()
			return nil, fmt.Errorf("no camera: %w", ErrDeviceUnavailable)
		}
		t, err := s.newTrack(Video, webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000})
		if err != nil {
			release()
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// DisplayMedia returns a static screen track.
func (s *StaticSource) DisplayMedia(ctx context.Context) (*Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrCancelled)
	}
	s.mu.Lock()
	display, dismiss, deny := s.Display, s.DismissDisplay, s.Deny
	s.mu.Unlock()
	switch {
	case !display:
		return nil, ErrUnsupported
	case deny:
		return nil, ErrPermissionDenied
	case dismiss:
		return nil, ErrCancelled
	}
	return s.newTrack(Screen, webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000})
}

func (s *StaticSource) newTrack(kind Kind, capability webrtc.RTPCodecCapability) (*Track, error) {
	local, err := webrtc.NewTrackLocalStaticSample(capability, string(kind), "studycall")
	if err != nil {
		return nil, fmt.Errorf("create %s track: %v: %w", kind, err, ErrDeviceUnavailable)
	}
	track := NewTrack(kind, local, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.live--
		return nil
	})

	s.mu.Lock()
	s.live++
	s.mu.Unlock()
	return track, nil
}
