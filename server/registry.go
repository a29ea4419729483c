package server

import (
	"sync"

	"github.com/asticode/go-astilog"
)

// Registry tracks active sessions for diagnostics. It only exposes
// add/remove/count so the underlying set can never be mutated directly, and
// it never blocks the per-session hot path.
type Registry struct {
	m  *sync.Mutex // Locks ss
	ss map[*session]bool
}

// NewRegistry creates a new registry
func NewRegistry() *Registry {
	return &Registry{
		m:  &sync.Mutex{},
		ss: make(map[*session]bool),
	}
}

func (r *Registry) add(s *session) {
	r.m.Lock()
	r.ss[s] = true
	c := len(r.ss)
	r.m.Unlock()
	astilog.Infof("server: client connected, %d active connections", c)
}

func (r *Registry) remove(s *session) {
	r.m.Lock()
	delete(r.ss, s)
	c := len(r.ss)
	r.m.Unlock()
	astilog.Infof("server: client disconnected, %d active connections", c)
}

// Count returns the number of active sessions
func (r *Registry) Count() int {
	r.m.Lock()
	defer r.m.Unlock()
	return len(r.ss)
}
