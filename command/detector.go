package command

import (
	"strings"
	"time"

	"github.com/asticode/go-astilog"
)

// Commands
type Command string

const (
	Play  Command = "play"
	Pause Command = "pause"
)

// DefaultCooldown is the minimum delay before the same command can fire again
const DefaultCooldown = time.Second

type entry struct {
	c  Command
	ks []string // synonym keywords
	ms []string // common misrecognition fragments
}

// Detector maps transcribed text to commands and debounces rapid repeats of
// the same command. It is pure string logic over already-validated text and
// must be owned by a single session.
type Detector struct {
	es          []entry
	lastCommand Command
	lastTime    time.Time
	now         func() time.Time
	o           DetectorOptions
}

type DetectorOptions struct {
	Cooldown time.Duration `toml:"cooldown"`
}

// NewDetector creates a new detector
func NewDetector(o DetectorOptions) *Detector {
	if o.Cooldown <= 0 {
		o.Cooldown = DefaultCooldown
	}
	return &Detector{
		es: []entry{
			{c: Play, ks: []string{"play", "start", "begin", "resume", "go"}, ms: []string{"clay", "lay"}},
			{c: Pause, ks: []string{"pause", "stop", "halt", "freeze", "wait"}, ms: []string{"paws", "cause", "post"}},
		},
		now: time.Now,
		o:   o,
	}
}

// Process matches text against the configured commands. Commands are
// evaluated in a stable order and the first match wins.
func (d *Detector) Process(text string) (c Command, ok bool) {
	// Normalize
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return
	}

	// The command name itself appears in the text
	for _, e := range d.es {
		if strings.Contains(text, string(e.c)) {
			return d.debounce(e.c)
		}
	}

	// A synonym appears as a whole word or, more leniently, as a raw
	// substring
	for _, e := range d.es {
		for _, k := range e.ks {
			if wholeWord(text, k) {
				astilog.Debugf("command: keyword %q matched %s", k, e.c)
				return d.debounce(e.c)
			}
			if strings.Contains(text, k) {
				astilog.Debugf("command: substring %q matched %s", k, e.c)
				return d.debounce(e.c)
			}
		}
	}

	// Misrecognition fallbacks. This list is tuned to the upstream engine's
	// error patterns, not guaranteed behavior.
	for _, e := range d.es {
		for _, m := range e.ms {
			if strings.Contains(text, m) {
				astilog.Debugf("command: possible %s misrecognition %q", e.c, m)
				return d.debounce(e.c)
			}
		}
	}
	return
}

// debounce suppresses a repeat of the previous command within the cooldown
// window. A different command is never suppressed.
func (d *Detector) debounce(c Command) (Command, bool) {
	now := d.now()
	if c == d.lastCommand && now.Sub(d.lastTime) < d.o.Cooldown {
		astilog.Debugf("command: %s ignored due to cooldown", c)
		return "", false
	}
	d.lastCommand = c
	d.lastTime = now
	return c, true
}

func wholeWord(text, w string) bool {
	return strings.Contains(" "+text+" ", " "+w+" ")
}
