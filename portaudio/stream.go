package portaudio

import (
	"github.com/asticode/go-astilog"
	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
)

// Initialize initializes portaudio
func Initialize() (err error) {
	astilog.Debug("portaudio: initializing portaudio")
	if err = portaudio.Initialize(); err != nil {
		err = errors.Wrap(err, "portaudio: initializing portaudio failed")
		return
	}
	return
}

// Terminate terminates portaudio
func Terminate() (err error) {
	astilog.Debug("portaudio: terminating portaudio")
	if err = portaudio.Terminate(); err != nil {
		err = errors.Wrap(err, "portaudio: terminating portaudio failed")
		return
	}
	return
}

// Stream reads signed 16-bit samples from an input device
type Stream struct {
	b []int16
	o StreamOptions
	s *portaudio.Stream
}

// StreamOptions represents stream options
type StreamOptions struct {
	BufferLength     int `toml:"buffer_length"`
	NumInputChannels int `toml:"num_input_channels"`
	SampleRate       int `toml:"sample_rate"`
}

// NewDefaultStream opens a stream on the default input device
func NewDefaultStream(o StreamOptions) (s *Stream, err error) {
	// Create stream
	s = &Stream{
		b: make([]int16, o.BufferLength),
		o: o,
	}

	// Open default stream
	astilog.Debugf("portaudio: opening default stream %p", s)
	if s.s, err = portaudio.OpenDefaultStream(s.o.NumInputChannels, 0, float64(s.o.SampleRate), len(s.b), s.b); err != nil {
		err = errors.Wrapf(err, "portaudio: opening default stream %p failed", s)
		return
	}
	return
}

// SampleRate returns the stream's sample rate
func (s *Stream) SampleRate() int { return s.o.SampleRate }

// Close implements the io.Closer interface
func (s *Stream) Close() (err error) {
	// Close stream
	astilog.Debugf("portaudio: closing stream %p", s)
	if err = s.s.Close(); err != nil {
		err = errors.Wrapf(err, "portaudio: closing stream %p failed", s)
		return
	}
	return
}

// Start starts the stream
func (s *Stream) Start() (err error) {
	// Start stream
	astilog.Debugf("portaudio: starting stream %p", s)
	if err = s.s.Start(); err != nil {
		err = errors.Wrapf(err, "portaudio: starting stream %p failed", s)
		return
	}
	return
}

// Stop stops the stream
func (s *Stream) Stop() (err error) {
	// Stop stream
	astilog.Debugf("portaudio: stopping stream %p", s)
	if err = s.s.Stop(); err != nil {
		err = errors.Wrapf(err, "portaudio: stopping stream %p failed", s)
		return
	}
	return
}

// Read reads the next buffer worth of samples
func (s *Stream) Read() (ss []int16, err error) {
	// Read
	if err = s.s.Read(); err != nil {
		err = errors.Wrap(err, "portaudio: reading failed")
		return
	}

	// Copy buffer
	ss = make([]int16, len(s.b))
	copy(ss, s.b)
	return
}
