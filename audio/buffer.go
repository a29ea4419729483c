package audio

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/asticode/go-astilog"
)

// Defaults
const (
	DefaultSampleRate     = 16000
	defaultMaxDuration    = 2 * time.Second
	defaultMaxLevel       = 30000
	defaultResetThreshold = 500 * time.Millisecond
	defaultSilenceLevel   = 50
	diagnosticInterval    = 5 * time.Second
	minFrameBytes         = 32
	bytesPerSample        = 2
)

// Buffer maintains a bounded rolling window of raw 16-bit little-endian PCM.
// It gates out near-silent frames and resets on a time-based policy so that
// transcription stays focused on the most recent utterance.
//
// A Buffer is owned by a single session and must not be mutated from multiple
// goroutines.
type Buffer struct {
	b              []byte
	lastDiagnostic time.Time
	o              BufferOptions
	total          int
}

type BufferOptions struct {
	MaxDuration    time.Duration `toml:"max_duration"`
	MaxLevel       float64       `toml:"max_level"`
	ResetThreshold time.Duration `toml:"reset_threshold"`
	SampleRate     int           `toml:"sample_rate"`
	SilenceLevel   float64       `toml:"silence_level"`
}

// NewBuffer creates a new buffer
func NewBuffer(o BufferOptions) *Buffer {
	if o.MaxDuration <= 0 {
		o.MaxDuration = defaultMaxDuration
	}
	if o.MaxLevel <= 0 {
		o.MaxLevel = defaultMaxLevel
	}
	if o.ResetThreshold <= 0 {
		o.ResetThreshold = defaultResetThreshold
	}
	if o.SampleRate <= 0 {
		o.SampleRate = DefaultSampleRate
	}
	if o.SilenceLevel <= 0 {
		o.SilenceLevel = defaultSilenceLevel
	}
	return &Buffer{o: o}
}

// Ingest validates a raw frame, appends it to the rolling window and returns
// the full buffered sample sequence so that the caller can transcribe with
// recent context.
//
// Frames that are too short or whose level doesn't look like plausible PCM
// are dropped without mutating the buffer. Near-silent frames don't grow the
// buffer but still return the existing samples unchanged.
func (b *Buffer) Ingest(frame []byte) (ss []int16, ok bool) {
	// Frame is too short
	if len(frame) < minFrameBytes {
		return
	}

	// Drop an odd trailing byte to keep 16-bit sample alignment
	if len(frame)%bytesPerSample != 0 {
		frame = frame[:len(frame)-1]
	}

	// Decode frame
	fs := decode(frame)

	// Frame doesn't look like raw PCM
	l := level(fs)
	if l > b.o.MaxLevel {
		astilog.Debugf("audio: frame level %.2f doesn't look like valid pcm, dropping frame", l)
		return
	}

	// Energy gate: silence must not grow the buffer but the caller can still
	// process what's already buffered
	if l < b.o.SilenceLevel {
		if len(b.b) == 0 {
			return
		}
		return b.samples()
	}

	// Diagnostics
	b.total += len(fs)
	if now := time.Now(); now.Sub(b.lastDiagnostic) > diagnosticInterval {
		astilog.Debugf("audio: %d samples processed, %d samples buffered", b.total, len(b.b)/bytesPerSample)
		b.lastDiagnostic = now
	}

	// Discard stale context before appending to keep latency bounded
	if b.duration() > b.o.ResetThreshold {
		astilog.Debug("audio: buffer exceeded reset threshold, resetting")
		b.Reset()
	}

	// Append and retain only the most recent cap-worth of bytes
	b.b = append(b.b, frame...)
	if max := b.maxBytes(); len(b.b) > max {
		b.b = b.b[len(b.b)-max:]
	}
	return b.samples()
}

// Reset clears the buffer
func (b *Buffer) Reset() {
	b.b = b.b[:0]
}

// Len returns the number of buffered bytes
func (b *Buffer) Len() int {
	return len(b.b)
}

func (b *Buffer) samples() (ss []int16, ok bool) {
	// Corruption must never persist across calls
	if len(b.b)%bytesPerSample != 0 {
		astilog.Error("audio: buffer is misaligned, resetting")
		b.Reset()
		return
	}
	return decode(b.b), true
}

func (b *Buffer) duration() time.Duration {
	return time.Duration(float64(len(b.b)/bytesPerSample) / float64(b.o.SampleRate) * float64(time.Second))
}

func (b *Buffer) maxBytes() int {
	return int(float64(b.o.SampleRate)*b.o.MaxDuration.Seconds()) * bytesPerSample
}

func decode(b []byte) (ss []int16) {
	ss = make([]int16, len(b)/bytesPerSample)
	for i := range ss {
		ss[i] = int16(binary.LittleEndian.Uint16(b[i*bytesPerSample:]))
	}
	return
}

// level computes the mean absolute amplitude of samples
func level(ss []int16) (l float64) {
	if len(ss) == 0 {
		return
	}
	for _, s := range ss {
		l += math.Abs(float64(s))
	}
	return l / float64(len(ss))
}
