package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestDetector() (d *Detector, now *time.Time) {
	d = NewDetector(DetectorOptions{})
	n := time.Unix(1e9, 0)
	now = &n
	d.now = func() time.Time { return *now }
	return
}

func TestDetectorMatching(t *testing.T) {
	d, now := newTestDetector()

	for _, v := range []struct {
		c    Command
		ok   bool
		text string
	}{
		{text: "", ok: false},
		{text: "   ", ok: false},
		{text: "hello there", ok: false},
		{text: "please play the music", c: Play, ok: true},
		{text: "PAUSE", c: Pause, ok: true},
		{text: "stop please", c: Pause, ok: true},
		{text: "let's go", c: Play, ok: true},
		{text: "clay", c: Play, ok: true},
		{text: "paws", c: Pause, ok: true},
		{text: "because of that", c: Pause, ok: true},
	} {
		// Keep the cooldown out of the way
		*now = now.Add(time.Hour)

		c, ok := d.Process(v.text)
		assert.Equal(t, v.ok, ok, v.text)
		assert.Equal(t, v.c, c, v.text)
	}
}

func TestDetectorPrecedence(t *testing.T) {
	d, now := newTestDetector()

	// Synonyms win over misrecognition fallbacks
	c, ok := d.Process("cause we go")
	assert.True(t, ok)
	assert.Equal(t, Play, c)

	// Command names win over synonyms
	*now = now.Add(time.Hour)
	c, ok = d.Process("stop the playback")
	assert.True(t, ok)
	assert.Equal(t, Play, c)
}

func TestDetectorCooldown(t *testing.T) {
	d, now := newTestDetector()

	// Accepted at T
	c, ok := d.Process("play")
	assert.True(t, ok)
	assert.Equal(t, Play, c)

	// Suppressed at T+0.5s
	*now = now.Add(500 * time.Millisecond)
	_, ok = d.Process("play")
	assert.False(t, ok)

	// Accepted again at T+1.1s
	*now = now.Add(600 * time.Millisecond)
	c, ok = d.Process("play")
	assert.True(t, ok)
	assert.Equal(t, Play, c)
}

func TestDetectorCrossCommandIndependence(t *testing.T) {
	d, now := newTestDetector()

	// A different command is never suppressed
	_, ok := d.Process("play")
	assert.True(t, ok)
	*now = now.Add(100 * time.Millisecond)
	c, ok := d.Process("pause")
	assert.True(t, ok)
	assert.Equal(t, Pause, c)
}

func TestDetectorSynonymCooldownPair(t *testing.T) {
	d, now := newTestDetector()

	// Both texts map to pause: the second is within the cooldown window
	c, ok := d.Process("i need to pause now")
	assert.True(t, ok)
	assert.Equal(t, Pause, c)

	*now = now.Add(200 * time.Millisecond)
	_, ok = d.Process("stop please")
	assert.False(t, ok)
}
