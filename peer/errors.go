package peer

import "errors"

// Below are the session failures.
var (
	// ErrUnknownPeer is returned when no session exists for the remote user.
	ErrUnknownPeer = errors.New("unknown peer")

	// ErrSessionExists is returned when an offer is requested for a user whose
	// session is already past the offer.
	ErrSessionExists = errors.New("session already exists")

	// ErrGlare is returned to the side that keeps its own offer when both sides
	// offered at once. The remote side answers that offer instead.
	ErrGlare = errors.New("offer collision won by local offer")

	// ErrNoLocalStream is returned when a session is requested before the local
	// stream was set.
	ErrNoLocalStream = errors.New("no local stream")

	// ErrInvalidState is returned when a description arrives in a state that
	// cannot take it.
	ErrInvalidState = errors.New("invalid session state")
)
