//go:build !linux || !cgo

package media

import "github.com/rs/zerolog/log"

// DefaultSource returns the capture source of the platform. Device capture is
// only built for linux with cgo; elsewhere static tracks are sent.
func DefaultSource(_ Config) Source {
	log.Info().Msg("device capture is not available on this platform, sending static tracks")
	return NewStaticSource()
}
