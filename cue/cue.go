// Package cue plays the audio cues of a call: the ringtone, the ringback tone
// and the short connected and ended signals.
package cue

// Sound is one audio cue.
type Sound int

// Below are the cues. Ringtone and Ringback loop until stopped.
const (
	Ringtone Sound = iota
	Ringback
	Connected
	Ended
)

func (s Sound) String() string {
	switch s {
	case Ringtone:
		return "ringtone"
	case Ringback:
		return "ringback"
	case Connected:
		return "connected"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// Player plays one cue at a time.
//
//go:generate mockgen -destination=mock_player.go -package=cue . Player
type Player interface {
	// Play stops the current cue and starts s.
	Play(s Sound)

	// Stop stops the current cue.
	Stop()

	// Release stops the current cue and closes the audio output. The next Play
	// opens it again.
	Release()
}
