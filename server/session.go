package server

import (
	"net"
	"sync"
	"time"

	"github.com/asticode/go-astilog"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/voicecmd/voicecmd/audio"
	"github.com/voicecmd/voicecmd/command"
	"github.com/voicecmd/voicecmd/speech"
)

// Session states
const (
	stateConnecting = "connecting"
	stateActive     = "active"
	stateClosing    = "closing"
	stateClosed     = "closed"
)

// session owns one connection's lifecycle: the receive loop, rate limiting,
// liveness probing and the audio -> transcription -> command pipeline.
// Frames are handled one at a time in arrival order and outbound messages
// are written from the session goroutine only, so no reordering can occur.
type session struct {
	b             *audio.Buffer
	c             *websocket.Conn
	d             *command.Detector
	frames        int
	lastProcessed time.Time
	now           func() time.Time
	o             Options
	oc            *sync.Once
	r             *Registry
	send          func(text string) error
	state         string
	t             speech.Transcriber
}

func newSession(c *websocket.Conn, t speech.Transcriber, r *Registry, o Options) (s *session) {
	s = &session{
		b:     audio.NewBuffer(o.Audio),
		c:     c,
		d:     command.NewDetector(o.Command),
		now:   time.Now,
		o:     o,
		oc:    &sync.Once{},
		r:     r,
		state: stateConnecting,
		t:     t,
	}
	s.send = s.write
	return
}

// run drives the session state machine. Cleanup is unconditional and
// idempotent no matter which path leads out of the loop.
func (s *session) run() {
	// Register
	s.r.add(s)

	// Make sure the session is cleaned up
	defer s.close()

	// Pongs extend the read deadline, keeping quiet-but-live peers active
	s.c.SetPongHandler(func(string) error {
		return s.c.SetReadDeadline(s.now().Add(s.o.ReadTimeout + s.o.PingTimeout))
	})

	// Probe liveness while the loop is blocked waiting for traffic
	done := make(chan struct{})
	defer close(done)
	go s.probe(done)

	// Handshake done
	s.state = stateActive

	// Receive loop
	for {
		// Bound the wait: a half-open connection fails the probe and times
		// out here
		if err := s.c.SetReadDeadline(s.now().Add(s.o.ReadTimeout + s.o.PingTimeout)); err != nil {
			astilog.Error(errors.Wrap(err, "server: setting read deadline failed"))
			return
		}

		// Receive
		mt, p, err := s.c.ReadMessage()
		if err != nil {
			if isTimeout(err) {
				astilog.Info("server: liveness check failed, closing session")
			} else if websocket.IsCloseError(errors.Cause(err), websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				astilog.Info("server: peer closed the connection")
			} else {
				astilog.Error(errors.Wrap(err, "server: reading message failed"))
			}
			return
		}

		// Process
		switch mt {
		case websocket.BinaryMessage:
			if err = s.onFrame(p); err != nil {
				astilog.Error(errors.Wrap(err, "server: session is unrecoverable"))
				return
			}
		default:
			astilog.Debugf("server: ignoring message of type %d", mt)
		}
	}
}

// probe sends periodic pings so that a silently-dead connection is detected
// within ReadTimeout + PingTimeout.
func (s *session) probe(done chan struct{}) {
	t := time.NewTicker(s.o.ReadTimeout)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := s.c.WriteControl(websocket.PingMessage, nil, s.now().Add(s.o.PingTimeout)); err != nil {
				astilog.Debug(errors.Wrap(err, "server: writing ping failed"))
				return
			}
		}
	}
}

// onFrame feeds one binary frame through the pipeline. Only errors that must
// terminate the session are returned, everything else is logged and the
// frame is dropped.
func (s *session) onFrame(p []byte) (err error) {
	// Diagnostics
	s.frames++
	if s.frames%100 == 0 {
		astilog.Debugf("server: processed %d audio frames", s.frames)
	}

	// Rate limiting: the frame is accepted but not processed
	now := s.now()
	if now.Sub(s.lastProcessed) < s.o.RateLimitInterval {
		return
	}
	s.lastProcessed = now

	// Buffer audio
	ss, ok := s.b.Ingest(p)
	if !ok || len(ss) < s.o.MinTranscribeSamples {
		return
	}

	// Transcribe. An engine failure means no text was produced for this
	// frame, never the end of the session.
	r, errT := s.t.Transcribe(ss)
	if errT != nil {
		astilog.Error(errors.Wrap(errT, "server: transcribing failed"))
		return
	}

	// No text
	if r.Text == "" {
		return
	}

	// Log
	astilog.Infof("server: transcription: %s", r.Text)

	// Detect command
	if c, ok := s.d.Process(r.Text); ok {
		astilog.Infof("server: command detected: %s", c)
		if err = s.send(string(c)); err != nil {
			err = errors.Wrap(err, "server: sending command failed")
			return
		}
		return
	}

	// Send the raw text, partial hypotheses included, for live feedback
	if err = s.send(r.Text); err != nil {
		err = errors.Wrap(err, "server: sending text failed")
		return
	}
	return
}

func (s *session) write(text string) (err error) {
	if err = s.c.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		err = errors.Wrap(err, "server: writing message failed")
		return
	}
	return
}

// close tears the session down. It is reachable from every exit path, runs
// exactly once and never fails upward.
func (s *session) close() {
	s.oc.Do(func() {
		s.state = stateClosing

		// Release the transcriber
		if s.t != nil {
			if err := s.t.Close(); err != nil {
				astilog.Error(errors.Wrap(err, "server: closing transcriber failed"))
			}
		}

		// Close the connection
		if s.c != nil {
			if err := s.c.Close(); err != nil {
				astilog.Debug(errors.Wrap(err, "server: closing connection failed"))
			}
		}

		// Unregister
		s.r.remove(s)
		s.state = stateClosed
	})
}

func isTimeout(err error) bool {
	v, ok := errors.Cause(err).(net.Error)
	return ok && v.Timeout()
}
