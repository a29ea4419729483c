package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// pcmFrame builds a little-endian 16-bit frame of n samples alternating
// between +amp and -amp so that its mean absolute amplitude is amp.
func pcmFrame(n int, amp int16) (b []byte) {
	b = make([]byte, n*bytesPerSample)
	for i := 0; i < n; i++ {
		s := amp
		if i%2 == 1 {
			s = -amp
		}
		b[i*bytesPerSample] = byte(uint16(s))
		b[i*bytesPerSample+1] = byte(uint16(s) >> 8)
	}
	return
}

func TestBufferIngest(t *testing.T) {
	b := NewBuffer(BufferOptions{})

	// Too short frames are rejected without mutating the buffer
	ss, ok := b.Ingest(make([]byte, 5))
	assert.False(t, ok)
	assert.Equal(t, 0, b.Len())

	// A valid frame returns the full buffered sequence
	ss, ok = b.Ingest(pcmFrame(1600, 1000))
	assert.True(t, ok)
	assert.Len(t, ss, 1600)
	assert.Equal(t, 3200, b.Len())

	// Implausible amplitudes are rejected without mutating the buffer
	ss, ok = b.Ingest(pcmFrame(1600, 32000))
	assert.False(t, ok)
	assert.Equal(t, 3200, b.Len())
}

func TestBufferAlignment(t *testing.T) {
	b := NewBuffer(BufferOptions{})

	// An odd trailing byte is dropped
	f := append(pcmFrame(100, 1000), 0x7f)
	ss, ok := b.Ingest(f)
	assert.True(t, ok)
	assert.Len(t, ss, 100)
	assert.Equal(t, 0, b.Len()%2)
}

func TestBufferSilence(t *testing.T) {
	b := NewBuffer(BufferOptions{})

	// Silence on an empty buffer yields nothing
	ss, ok := b.Ingest(make([]byte, 3200))
	assert.False(t, ok)
	assert.Equal(t, 0, b.Len())

	// Fill the buffer
	_, ok = b.Ingest(pcmFrame(1600, 1000))
	assert.True(t, ok)
	l := b.Len()

	// All-zero frames return the prior buffer unchanged
	ss, ok = b.Ingest(make([]byte, 3200))
	assert.True(t, ok)
	assert.Len(t, ss, l/bytesPerSample)
	assert.Equal(t, l, b.Len())

	// Low-energy frames never grow the buffer
	for i := 0; i < 10; i++ {
		b.Ingest(pcmFrame(1600, 10))
		assert.Equal(t, l, b.Len())
	}
}

func TestBufferReset(t *testing.T) {
	b := NewBuffer(BufferOptions{})

	// 0.3s frames: the third one crosses the 0.5s reset threshold
	f := pcmFrame(4800, 1000)
	b.Ingest(f)
	assert.Equal(t, 9600, b.Len())
	b.Ingest(f)
	assert.Equal(t, 19200, b.Len())
	b.Ingest(f)
	assert.Equal(t, 9600, b.Len())
}

func TestBufferBound(t *testing.T) {
	b := NewBuffer(BufferOptions{})
	max := b.maxBytes()

	// A single frame longer than the cap is trimmed to the most recent
	// cap-worth of bytes
	ss, ok := b.Ingest(pcmFrame(48000, 1000))
	assert.True(t, ok)
	assert.Equal(t, max, b.Len())
	assert.Len(t, ss, max/bytesPerSample)

	// No sequence of frames ever exceeds the cap
	for i := 0; i < 20; i++ {
		b.Ingest(pcmFrame(4800, 1000))
		assert.True(t, b.Len() <= max)
	}
}
