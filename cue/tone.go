package cue

import (
	"math"
	"time"
)

const (
	// SampleRate is the rate of the generated PCM.
	SampleRate = 48000

	// FrameDuration is the length of one written frame.
	FrameDuration = 20 * time.Millisecond

	frameSamples = SampleRate * int(FrameDuration/time.Millisecond) / 1000
	amplitude    = 0.25 * math.MaxInt16
)

// segment is a stretch of tone, or of silence when freqs is empty.
type segment struct {
	freqs    []float64
	duration time.Duration
}

type pattern struct {
	segments []segment
	loop     bool
}

var patterns = map[Sound]pattern{
	Ringtone: {
		segments: []segment{
			{freqs: []float64{523.25, 659.25}, duration: time.Second},
			{duration: 2 * time.Second},
		},
		loop: true,
	},
	Ringback: {
		segments: []segment{
			{freqs: []float64{440, 480}, duration: 2 * time.Second},
			{duration: 4 * time.Second},
		},
		loop: true,
	},
	Connected: {
		segments: []segment{
			{freqs: []float64{880}, duration: 160 * time.Millisecond},
		},
	},
	Ended: {
		segments: []segment{
			{freqs: []float64{480}, duration: 160 * time.Millisecond},
			{duration: 80 * time.Millisecond},
			{freqs: []float64{480}, duration: 160 * time.Millisecond},
		},
	},
}

// frames renders a pattern into 20 ms frames. The second value is false once a
// non-looping pattern is exhausted.
type frames struct {
	pattern pattern
	seg     int
	left    int
	phase   int
}

func newFrames(p pattern) *frames {
	f := &frames{pattern: p}
	f.left = samplesOf(p.segments[0].duration)
	return f
}

func samplesOf(d time.Duration) int {
	return int(d * SampleRate / time.Second)
}

func (f *frames) next() ([]int16, bool) {
	if f.seg >= len(f.pattern.segments) {
		return nil, false
	}
	out := make([]int16, frameSamples)
	for i := range out {
		if f.left == 0 {
			f.seg++
			f.phase = 0
			if f.seg == len(f.pattern.segments) {
				if !f.pattern.loop {
					return out, true
				}
				f.seg = 0
			}
			f.left = samplesOf(f.pattern.segments[f.seg].duration)
		}
		out[i] = sample(f.pattern.segments[f.seg].freqs, f.phase)
		f.phase++
		f.left--
	}
	return out, true
}

func sample(freqs []float64, n int) int16 {
	if len(freqs) == 0 {
		return 0
	}
	var v float64
	for _, freq := range freqs {
		v += math.Sin(2 * math.Pi * freq * float64(n) / SampleRate)
	}
	return int16(amplitude * v / float64(len(freqs)))
}
