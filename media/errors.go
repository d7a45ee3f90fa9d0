package media

import "errors"

// Below are the capture failures.
var (
	// ErrPermissionDenied is returned when the user or the platform refuses access.
	ErrPermissionDenied = errors.New("media permission denied")

	// ErrDeviceUnavailable is returned when no matching device can be opened.
	ErrDeviceUnavailable = errors.New("media device unavailable")

	// ErrUnsupported is returned when the platform cannot capture the screen.
	ErrUnsupported = errors.New("screen capture unsupported")

	// ErrCancelled is returned when the user dismissed the picker or the
	// acquisition was abandoned.
	ErrCancelled = errors.New("media acquisition cancelled")
)
