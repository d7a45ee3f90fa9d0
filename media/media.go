package media

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Controller manages the local stream of the current call.
type Controller struct {
	source Source

	mu          sync.Mutex
	stream      *Stream
	onScreenEnd func()

	// generation changes on StopAll so that acquisitions still in flight can
	// tell that their result is no longer wanted.
	generation int
}

// NewController creates a new Controller instance.
func NewController(source Source) *Controller {
	return &Controller{
		source: source,
	}
}

// Source returns the capture source.
func (c *Controller) Source() Source {
	return c.source
}

// Stream returns the current local stream, or nil when none is held.
func (c *Controller) Stream() *Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream
}

// OnScreenShareEnded registers fn to run when screen capture ends outside the
// application.
func (c *Controller) OnScreenShareEnded(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onScreenEnd = fn
}

// EnsureLocalStream acquires the requested kinds that are missing and
// re-enables the ones already held. The same stream is returned for the
// lifetime of a call.
func (c *Controller) EnsureLocalStream(ctx context.Context, want Constraints) (*Stream, error) {
	c.mu.Lock()
	if c.stream == nil {
		c.stream = newStream()
	}
	stream := c.stream
	generation := c.generation

	missing := Constraints{}
	if want.Audio {
		if t, ok := stream.Track(Audio); ok {
			t.setEnabled(true)
		} else {
			missing.Audio = true
		}
	}
	if want.Video {
		if t, ok := stream.Track(Video); ok {
			t.setEnabled(true)
		} else {
			missing.Video = true
		}
	}
	c.mu.Unlock()
	stream.refresh()

	if !missing.Audio && !missing.Video {
		return stream, nil
	}

	tracks, err := c.source.UserMedia(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("acquire user media: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation || ctx.Err() != nil {
		stopTracks(tracks)
		return nil, fmt.Errorf("acquire user media: %w", ErrCancelled)
	}
	for _, t := range tracks {
		stream.put(t)
	}
	log.Debug().Str("stream", stream.ID()).Int("tracks", len(tracks)).Msg("local tracks acquired")
	return stream, nil
}

// SetAudioEnabled flips the microphone. It reports false when no microphone is held.
func (c *Controller) SetAudioEnabled(enabled bool) bool {
	return c.setEnabled(Audio, enabled)
}

// SetVideoEnabled flips the camera. It reports false when no camera is held.
func (c *Controller) SetVideoEnabled(enabled bool) bool {
	return c.setEnabled(Video, enabled)
}

func (c *Controller) setEnabled(kind Kind, enabled bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return false
	}
	t, ok := c.stream.Track(kind)
	if !ok {
		return false
	}
	t.setEnabled(enabled)
	c.stream.refresh()
	return true
}

// StartScreenShare acquires a screen track, which then takes the outbound video
// slot. An existing screen track is returned as is.
func (c *Controller) StartScreenShare(ctx context.Context) (*Track, error) {
	c.mu.Lock()
	if c.stream != nil {
		if t, ok := c.stream.Track(Screen); ok {
			c.mu.Unlock()
			return t, nil
		}
	}
	generation := c.generation
	c.mu.Unlock()

	track, err := c.source.DisplayMedia(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire display media: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation || ctx.Err() != nil {
		_ = track.Stop()
		return nil, fmt.Errorf("acquire display media: %w", ErrCancelled)
	}
	if c.stream == nil {
		c.stream = newStream()
	}
	stream := c.stream
	track.setOnEnded(func() {
		c.screenEnded(stream, track)
	})
	stream.put(track)
	return track, nil
}

func (c *Controller) screenEnded(stream *Stream, track *Track) {
	c.mu.Lock()
	if c.stream != stream {
		c.mu.Unlock()
		return
	}
	if current, ok := stream.Track(Screen); !ok || current != track {
		c.mu.Unlock()
		return
	}
	stream.remove(Screen)
	fn := c.onScreenEnd
	c.mu.Unlock()

	log.Debug().Msg("screen share ended by the system")
	if fn != nil {
		fn()
	}
}

// StopScreenShare stops the screen track. The outbound video slot falls back
// to the camera when it is held and enabled.
func (c *Controller) StopScreenShare() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return
	}
	if t := c.stream.remove(Screen); t != nil {
		if err := t.Stop(); err != nil {
			log.Warn().Err(err).Msg("failed to stop screen track")
		}
	}
}

// ReplaceOutboundTrack swaps the track of the given kind. The previous track
// is stopped.
func (c *Controller) ReplaceOutboundTrack(kind Kind, track *Track) error {
	if track == nil || track.Kind() != kind {
		return errors.New("track kind mismatch")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		c.stream = newStream()
	}
	previous, _ := c.stream.Track(kind)
	c.stream.put(track)
	if previous != nil && previous != track {
		if err := previous.Stop(); err != nil {
			log.Warn().Err(err).Str("kind", string(kind)).Msg("failed to stop replaced track")
		}
	}
	return nil
}

// StopAll stops every track and discards the stream. Acquisitions in flight
// are cancelled.
func (c *Controller) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if c.stream == nil {
		return
	}
	stopTracks(c.stream.clear())
	c.stream = nil
}

func stopTracks(tracks []*Track) {
	for _, t := range tracks {
		if err := t.Stop(); err != nil {
			log.Warn().Err(err).Str("kind", string(t.Kind())).Msg("failed to stop track")
		}
	}
}
