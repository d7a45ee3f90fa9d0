package media

import (
	"sync"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pion/webrtc/v4"
)

// Kind is the capture origin of a local track.
type Kind string

// Below are the local track kinds.
const (
	Audio  Kind = "audio"
	Video  Kind = "video"
	Screen Kind = "screen"
)

// CodecType returns the RTP media kind the track is sent as.
func (k Kind) CodecType() webrtc.RTPCodecType {
	if k == Audio {
		return webrtc.RTPCodecTypeAudio
	}
	return webrtc.RTPCodecTypeVideo
}

// Track is a local capture track. A disabled track stays open but is not sent.
type Track struct {
	id    string
	kind  Kind
	local webrtc.TrackLocal
	stop  func() error

	mu      sync.Mutex
	enabled bool
	stopped bool
	onEnded func()
}

// NewTrack wraps a pion local track. stop releases the underlying device and
// may be nil.
func NewTrack(kind Kind, local webrtc.TrackLocal, stop func() error) *Track {
	return &Track{
		id:      shortuuid.New(),
		kind:    kind,
		local:   local,
		stop:    stop,
		enabled: true,
	}
}

// ID returns the local id of the track.
func (t *Track) ID() string {
	return t.id
}

// Kind returns the capture origin of the track.
func (t *Track) Kind() Kind {
	return t.kind
}

// Local returns the pion track to attach to a sender.
func (t *Track) Local() webrtc.TrackLocal {
	return t.local
}

// Enabled reports whether the track is sent.
func (t *Track) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled && !t.stopped
}

// Stopped reports whether the device was released.
func (t *Track) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *Track) setEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

func (t *Track) setOnEnded(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEnded = fn
}

// Stop releases the device. It is safe to call more than once.
func (t *Track) Stop() error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.stopped = true
	t.mu.Unlock()

	if t.stop == nil {
		return nil
	}
	return t.stop()
}

// End is called by a source when capture ended outside the application, for
// example when the user stops sharing from the system UI. Tracks stopped by the
// application do not report the end again.
func (t *Track) End() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	fn := t.onEnded
	t.mu.Unlock()

	_ = t.Stop()
	if fn != nil {
		fn()
	}
}
