package server

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"path/filepath"
	"time"

	"github.com/asticode/go-astilog"
	astihttp "github.com/asticode/go-astitools/http"
	astiworker "github.com/asticode/go-astitools/worker"
	"github.com/go-audio/wav"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"

	"github.com/voicecmd/voicecmd/audio"
	"github.com/voicecmd/voicecmd/command"
	"github.com/voicecmd/voicecmd/speech"
)

// Defaults
const (
	defaultMinTranscribeSamples = 1600
	defaultPingTimeout          = 500 * time.Millisecond
	defaultRateLimitInterval    = 50 * time.Millisecond
	defaultReadTimeout          = time.Second
)

// Server accepts websocket sessions and serves the thin HTTP surface around
// them.
type Server struct {
	e speech.Engine
	o Options
	r *Registry
	u websocket.Upgrader
	w *astiworker.Worker
}

type Options struct {
	Addr                 string                  `toml:"addr"`
	Audio                audio.BufferOptions     `toml:"audio"`
	Command              command.DetectorOptions `toml:"command"`
	MinTranscribeSamples int                     `toml:"min_transcribe_samples"`
	PingTimeout          time.Duration           `toml:"ping_timeout"`
	RateLimitInterval    time.Duration           `toml:"rate_limit_interval"`
	ReadTimeout          time.Duration           `toml:"read_timeout"`
	ResourcesPath        string                  `toml:"resources_path"`
}

func applyDefaults(o Options) Options {
	if o.MinTranscribeSamples <= 0 {
		o.MinTranscribeSamples = defaultMinTranscribeSamples
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = defaultPingTimeout
	}
	if o.RateLimitInterval <= 0 {
		o.RateLimitInterval = defaultRateLimitInterval
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = defaultReadTimeout
	}
	if o.ResourcesPath == "" {
		o.ResourcesPath = "static"
	}
	return o
}

// New creates a new server
func New(e speech.Engine, w *astiworker.Worker, o Options) *Server {
	return &Server{
		e: e,
		o: applyDefaults(o),
		r: NewRegistry(),
		u: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		w: w,
	}
}

// Serve spawns the server
func (s *Server) Serve() {
	s.w.Serve(s.o.Addr, s.handler())
}

func (s *Server) handler() http.Handler {
	// Create router
	r := httprouter.New()

	// Web
	r.GET("/", s.homepage)
	r.ServeFiles("/static/*filepath", http.Dir(s.o.ResourcesPath))

	// API
	r.GET("/api/ok", s.ok)
	r.POST("/api/transcribe", s.transcribe)

	// Websocket
	r.GET("/ws", s.handleWebsocket)

	// Chain middlewares
	return astihttp.ChainMiddlewaresWithPrefix(r, []string{"/api/"}, astihttp.MiddlewareContentType("application/json"))
}

// Status represents the health check payload
type Status struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (s *Server) ok(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeHTTPData(rw, Status{
		Message: "Server is running",
		Status:  "ok",
	})
}

func (s *Server) homepage(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	http.ServeFile(rw, r, filepath.Join(s.o.ResourcesPath, "index.html"))
}

// Transcription represents a one-shot transcription payload
type Transcription struct {
	Final bool   `json:"final"`
	Text  string `json:"text"`
}

// transcribe runs a one-shot transcription of an uploaded wav clip. Nothing
// is stored.
func (s *Server) transcribe(rw http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	// Read body
	b, err := ioutil.ReadAll(req.Body)
	if err != nil {
		writeHTTPError(rw, http.StatusInternalServerError, errors.Wrap(err, "server: reading body failed"))
		return
	}

	// Decode wav
	buf, err := wav.NewDecoder(bytes.NewReader(b)).FullPCMBuffer()
	if err != nil {
		writeHTTPError(rw, http.StatusBadRequest, errors.Wrap(err, "server: decoding wav failed"))
		return
	}

	// Convert samples
	ss := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		ss[i] = int16(v)
	}

	// Create transcriber
	t, err := s.e.NewTranscriber()
	if err != nil {
		writeHTTPError(rw, http.StatusInternalServerError, errors.Wrap(err, "server: creating transcriber failed"))
		return
	}
	defer t.Close()

	// Transcribe
	r, err := t.Transcribe(ss)
	if err != nil {
		writeHTTPError(rw, http.StatusInternalServerError, errors.Wrap(err, "server: transcribing failed"))
		return
	}

	// Write
	writeHTTPData(rw, Transcription{
		Final: r.Final,
		Text:  r.Text,
	})
}

func (s *Server) handleWebsocket(rw http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	// Upgrade
	c, err := s.u.Upgrade(rw, req, nil)
	if err != nil {
		astilog.Error(errors.Wrap(err, "server: upgrading websocket failed"))
		return
	}

	// Create transcriber
	t, err := s.e.NewTranscriber()
	if err != nil {
		astilog.Error(errors.Wrap(err, "server: creating transcriber failed"))
		c.Close()
		return
	}

	// Run session
	newSession(c, t, s.r, s.o).run()
}
