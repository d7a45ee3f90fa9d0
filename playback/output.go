package playback

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
)

// ErrGestureRequired is returned by Output.Start when playback may only begin
// after a user gesture.
var ErrGestureRequired = errors.New("playback requires a user gesture")

// Output plays the RTP packets of one remote audio track.
type Output interface {
	Start() error
	Write(p *rtp.Packet) error
	Close() error
}

// OutputFactory creates the output of one remote track.
type OutputFactory func(userID, trackID string) (Output, error)

// Discard returns outputs that drop every packet.
func Discard(_, _ string) (Output, error) {
	return &discard{}, nil
}

type discard struct{}

func (*discard) Start() error              { return nil }
func (*discard) Write(_ *rtp.Packet) error { return nil }
func (*discard) Close() error              { return nil }

// OggFiles returns outputs writing the Opus payload of each track to
// <dir>/<user>-<track>.ogg.
func OggFiles(dir string) OutputFactory {
	return func(userID, trackID string) (Output, error) {
		return &oggOutput{path: filepath.Join(dir, fmt.Sprintf("%s-%s.ogg", userID, trackID))}, nil
	}
}

type oggOutput struct {
	path string

	mu sync.Mutex
	w  *oggwriter.OggWriter
}

func (o *oggOutput) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.w != nil {
		return nil
	}
	w, err := oggwriter.New(o.path, 48000, 2)
	if err != nil {
		return fmt.Errorf("open %s: %w", o.path, err)
	}
	o.w = w
	return nil
}

func (o *oggOutput) Write(p *rtp.Packet) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.w == nil {
		return nil
	}
	return o.w.WriteRTP(p)
}

func (o *oggOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.w == nil {
		return nil
	}
	err := o.w.Close()
	o.w = nil
	return err
}

// RequireGesture wraps outputs so that they only start once hub has seen a
// user gesture.
func RequireGesture(factory OutputFactory, hub *GestureHub) OutputFactory {
	return func(userID, trackID string) (Output, error) {
		out, err := factory(userID, trackID)
		if err != nil {
			return nil, err
		}
		return &gated{Output: out, hub: hub}, nil
	}
}

type gated struct {
	Output
	hub *GestureHub
}

func (g *gated) Start() error {
	if !g.hub.Activated() {
		return ErrGestureRequired
	}
	return g.Output.Start()
}
