package server

import (
	"sort"
	"sync"

	"github.com/manash/roomedit/internal/session"
)

// Registry holds the live editors, keyed by session id.
type Registry struct {
	mu      sync.RWMutex
	editors map[string]*session.Editor
}

func NewRegistry() *Registry {
	return &Registry{editors: make(map[string]*session.Editor)}
}

func (r *Registry) Add(e *session.Editor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.editors[e.ID()] = e
}

func (r *Registry) Get(id string) (*session.Editor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.editors[id]
	return e, ok
}

func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.editors[id]; !ok {
		return false
	}
	delete(r.editors, id)
	return true
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.editors))
	for id := range r.editors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
