package coordinator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"studycall/media"
	"studycall/peer"
	"studycall/signal"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		setup bool
		want  Kind
	}{
		{"rejected token", signal.ErrAuth, true, KindAuth},
		{"denied microphone", fmt.Errorf("acquire user media: %w", media.ErrPermissionDenied), true, KindMediaPermissionDenied},
		{"missing camera", media.ErrDeviceUnavailable, true, KindDeviceUnavailable},
		{"no display capture", media.ErrUnsupported, false, KindUnsupported},
		{"dismissed picker", media.ErrCancelled, false, KindCancelled},
		{"cancelled context", context.Canceled, false, KindCancelled},
		{"unknown peer", peer.ErrUnknownPeer, false, KindUnknownPeer},
		{"busy callee", &signal.ServerError{Kind: "busy"}, true, KindBusy},
		{"setup timeout", signal.ErrTimeout, true, KindSignalingUnavailable},
		{"setup server error", &signal.ServerError{Kind: "not_found"}, true, KindSignalingUnavailable},
		{"timeout", signal.ErrTimeout, false, KindTimeout},
		{"server error", &signal.ServerError{Kind: "not_found", Message: "call not found"}, false, KindServer},
		{"lost channel", signal.ErrNotConnected, false, KindTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := classifyRequest(tt.err, tt.setup)
			assert.Equal(t, tt.want, e.Kind)
			assert.Equal(t, tt.want, KindOf(e))
			assert.ErrorIs(t, e, tt.err)
		})
	}
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "StateViolation: no active call", violation("no active call").Error())
	assert.Equal(t, "Timeout: boom", (&Error{Kind: KindTimeout, Err: errors.New("boom")}).Error())
	assert.Equal(t, "Busy", (&Error{Kind: KindBusy}).Error())
	assert.Empty(t, KindOf(errors.New("plain")))

	wrapped := fmt.Errorf("accept: %w", &Error{Kind: KindBusy})
	assert.Equal(t, KindBusy, KindOf(wrapped))
	assert.Same(t, errors.Unwrap(wrapped), classify(wrapped, KindTransport))
}
