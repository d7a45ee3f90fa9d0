//go:build linux && cgo

package media

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	_ "github.com/pion/mediadevices/pkg/driver/screen"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// DeviceSource captures from the local camera, microphone and screen through
// pion/mediadevices, encoding VP8 and Opus.
type DeviceSource struct {
	config   Config
	selector *mediadevices.CodecSelector
}

// NewDeviceSource creates a DeviceSource with the given capture settings.
func NewDeviceSource(config Config) (*DeviceSource, error) {
	vpxParams, err := vpx.NewVP8Params()
	if err != nil {
		return nil, fmt.Errorf("vp8 params: %w", err)
	}
	vpxParams.BitRate = config.VideoBitRate

	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, fmt.Errorf("opus params: %w", err)
	}

	return &DeviceSource{
		config: config,
		selector: mediadevices.NewCodecSelector(
			mediadevices.WithVideoEncoders(&vpxParams),
			mediadevices.WithAudioEncoders(&opusParams),
		),
	}, nil
}

// DefaultSource returns the capture source of the platform.
func DefaultSource(config Config) Source {
	s, err := NewDeviceSource(config)
	if err != nil {
		log.Warn().Err(err).Msg("failed to create device source, falling back to static tracks")
		return NewStaticSource()
	}
	return s
}

// RegisterCodecs registers VP8 and Opus.
func (s *DeviceSource) RegisterCodecs(m *webrtc.MediaEngine) error {
	s.selector.Populate(m)
	return nil
}

// UserMedia opens the microphone and/or camera.
func (s *DeviceSource) UserMedia(ctx context.Context, c Constraints) ([]*Track, error) {
	constraints := mediadevices.MediaStreamConstraints{Codec: s.selector}
	if c.Video {
		constraints.Video = func(mc *mediadevices.MediaTrackConstraints) {
			// MJPEG nodes of some cameras produce frames the VP8 encoder rejects.
			mc.FrameFormat = prop.FrameFormatOneOf{
				frame.FormatYUYV,
				frame.FormatI420,
				frame.FormatI444,
				frame.FormatRGBA,
			}
			mc.Width = prop.IntRanged{Max: s.config.MaxWidth}
			mc.Height = prop.IntRanged{Max: s.config.MaxHeight}
		}
	}
	if c.Audio {
		constraints.Audio = func(_ *mediadevices.MediaTrackConstraints) {}
	}

	stream, err := capture(ctx, func() (mediadevices.MediaStream, error) {
		return mediadevices.GetUserMedia(constraints)
	})
	if err != nil {
		return nil, userMediaError(err)
	}

	var tracks []*Track
	for _, t := range stream.GetTracks() {
		kind := Audio
		if t.Kind() == webrtc.RTPCodecTypeVideo {
			kind = Video
		}
		tracks = append(tracks, NewTrack(kind, t, t.Close))
	}
	return tracks, nil
}

// DisplayMedia opens a screen capture track.
func (s *DeviceSource) DisplayMedia(ctx context.Context) (*Track, error) {
	stream, err := capture(ctx, func() (mediadevices.MediaStream, error) {
		return mediadevices.GetDisplayMedia(mediadevices.MediaStreamConstraints{
			Codec: s.selector,
			Video: func(_ *mediadevices.MediaTrackConstraints) {},
		})
	})
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			return nil, err
		}
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%v: %w", err, ErrPermissionDenied)
		}
		return nil, fmt.Errorf("%v: %w", err, ErrUnsupported)
	}

	videos := stream.GetVideoTracks()
	if len(videos) == 0 {
		return nil, ErrUnsupported
	}
	for _, extra := range videos[1:] {
		_ = extra.Close()
	}
	local := videos[0]
	track := NewTrack(Screen, local, local.Close)
	local.OnEnded(func(err error) {
		if err != nil {
			log.Debug().Err(err).Msg("screen capture ended")
		}
		track.End()
	})
	return track, nil
}

// capture runs a blocking mediadevices call and gives up when ctx is done.
// Tracks that arrive after that are closed.
func capture(ctx context.Context, open func() (mediadevices.MediaStream, error)) (mediadevices.MediaStream, error) {
	type result struct {
		stream mediadevices.MediaStream
		err    error
	}
	done := make(chan result, 1)
	go func() {
		stream, err := open()
		done <- result{stream: stream, err: err}
	}()

	select {
	case r := <-done:
		return r.stream, r.err
	case <-ctx.Done():
		go func() {
			r := <-done
			if r.err != nil {
				return
			}
			for _, t := range r.stream.GetTracks() {
				_ = t.Close()
			}
		}()
		return nil, fmt.Errorf("%v: %w", ctx.Err(), ErrCancelled)
	}
}

func userMediaError(err error) error {
	switch {
	case errors.Is(err, ErrCancelled):
		return err
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%v: %w", err, ErrPermissionDenied)
	default:
		return fmt.Errorf("%v: %w", err, ErrDeviceUnavailable)
	}
}
