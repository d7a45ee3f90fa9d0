package coordinator

import (
	"context"
	"errors"
	"fmt"

	"studycall/media"
	"studycall/peer"
	"studycall/signal"
)

// Kind classifies the failures the coordinator reports to its caller.
type Kind string

// Below are the failure kinds.
const (
	KindAuth                  Kind = "AuthError"
	KindTransport             Kind = "TransportError"
	KindTimeout               Kind = "Timeout"
	KindCancelled             Kind = "Cancelled"
	KindServer                Kind = "ServerError"
	KindMediaPermissionDenied Kind = "MediaPermissionDenied"
	KindDeviceUnavailable     Kind = "DeviceUnavailable"
	KindUnsupported           Kind = "Unsupported"
	KindUnknownPeer           Kind = "UnknownPeer"
	KindConnectionFailed      Kind = "ConnectionFailed"
	KindBusy                  Kind = "Busy"
	KindStateViolation        Kind = "StateViolation"
	KindSignalingUnavailable  Kind = "SignalingUnavailable"
)

// serverKindBusy is the server error kind for a callee that is already in a call.
const serverKindBusy = "busy"

// Error is the only error type returned by coordinator commands.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or an empty kind when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func violation(detail string) *Error {
	return &Error{Kind: KindStateViolation, Detail: detail}
}

// classify maps an error of a collaborator to its kind. Failures that carry no
// more specific kind get fallback.
func classify(err error, fallback Kind) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var serverErr *signal.ServerError
	kind := fallback
	switch {
	case errors.Is(err, signal.ErrAuth):
		kind = KindAuth
	case errors.Is(err, signal.ErrCancelled), errors.Is(err, media.ErrCancelled), errors.Is(err, context.Canceled):
		kind = KindCancelled
	case errors.As(err, &serverErr) && serverErr.Kind == serverKindBusy:
		kind = KindBusy
	case errors.Is(err, media.ErrPermissionDenied):
		kind = KindMediaPermissionDenied
	case errors.Is(err, media.ErrDeviceUnavailable):
		kind = KindDeviceUnavailable
	case errors.Is(err, media.ErrUnsupported):
		kind = KindUnsupported
	case errors.Is(err, peer.ErrUnknownPeer):
		kind = KindUnknownPeer
	}
	return &Error{Kind: kind, Err: err}
}

// classifyRequest maps the failure of an acknowledged command. Timeouts and
// server errors keep their own kind unless the command was needed to set the
// call up.
func classifyRequest(err error, setup bool) *Error {
	if setup {
		return classify(err, KindSignalingUnavailable)
	}
	var serverErr *signal.ServerError
	switch {
	case errors.Is(err, signal.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Err: err}
	case errors.As(err, &serverErr) && serverErr.Kind != serverKindBusy:
		return &Error{Kind: KindServer, Detail: serverErr.Message, Err: err}
	}
	return classify(err, KindTransport)
}
