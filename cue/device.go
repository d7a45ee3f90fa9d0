package cue

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
)

// Output receives 16-bit mono PCM at SampleRate.
type Output interface {
	Write(frame []int16) error
	Close() error
}

// Opener opens the audio output.
type Opener func() (Output, error)

// Device renders cues into an Output, one frame per FrameDuration. The output
// is opened on the first Play and closed by Release.
type Device struct {
	open  Opener
	clock clock.Clock

	mu   sync.Mutex
	out  Output
	loop bool
	stop chan struct{}
	done chan struct{}

	// draining is the render of a released output that still plays its last
	// one-shot cue.
	draining *render
}

type render struct {
	stop chan struct{}
	done chan struct{}
}

// NewDevice creates a new Device instance.
func NewDevice(open Opener, clk clock.Clock) *Device {
	return &Device{
		open:  open,
		clock: clk,
	}
}

// Play stops the current cue and starts s.
func (d *Device) Play(s Sound) {
	p, ok := patterns[s]
	if !ok {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.halt()
	if d.draining != nil {
		close(d.draining.stop)
		<-d.draining.done
		d.draining = nil
	}

	if d.out == nil {
		out, err := d.open()
		if err != nil {
			log.Warn().Err(err).Str("cue", s.String()).Msg("failed to open audio output")
			return
		}
		d.out = out
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	d.stop, d.done = stop, done
	d.loop = p.loop
	ticker := d.clock.Ticker(FrameDuration)
	go d.render(d.out, newFrames(p), ticker, stop, done)
}

func (d *Device) render(out Output, f *frames, ticker *clock.Ticker, stop, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		frame, ok := f.next()
		if !ok {
			return
		}
		if err := out.Write(frame); err != nil {
			log.Warn().Err(err).Msg("failed to write cue frame")
			return
		}
	}
}

// Stop stops the current cue.
func (d *Device) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.halt()
}

// Release closes the output. A looping cue is stopped at once; a one-shot cue
// plays to its end first.
func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.out == nil {
		d.halt()
		return
	}
	out := d.out
	d.out = nil
	if d.stop == nil || d.loop {
		d.halt()
		closeOutput(out)
		return
	}

	r := &render{stop: d.stop, done: d.done}
	d.stop, d.done = nil, nil
	d.draining = r
	go func() {
		<-r.done
		closeOutput(out)
	}()
}

func closeOutput(out Output) {
	if err := out.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close audio output")
	}
}

// halt stops the render goroutine and waits for it. d.mu must be held.
func (d *Device) halt() {
	if d.stop == nil {
		return
	}
	close(d.stop)
	<-d.done
	d.stop, d.done = nil, nil
}

// FileOutput returns an Opener writing raw s16le PCM to path. "-" is stdout.
func FileOutput(path string) Opener {
	return func() (Output, error) {
		if path == "-" {
			return &pcmWriter{w: bufio.NewWriter(os.Stdout)}, nil
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		return &pcmWriter{w: bufio.NewWriter(f), c: f}, nil
	}
}

type pcmWriter struct {
	w *bufio.Writer
	c io.Closer
}

func (p *pcmWriter) Write(frame []int16) error {
	if err := binary.Write(p.w, binary.LittleEndian, frame); err != nil {
		return err
	}
	return p.w.Flush()
}

func (p *pcmWriter) Close() error {
	if err := p.w.Flush(); err != nil {
		return err
	}
	if p.c == nil {
		return nil
	}
	return p.c.Close()
}

// Discard is an Opener whose output drops every frame.
func Discard() (Output, error) {
	return discard{}, nil
}

type discard struct{}

func (discard) Write([]int16) error { return nil }
func (discard) Close() error        { return nil }
