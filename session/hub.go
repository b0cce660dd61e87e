package session

import (
	"sync"

	"github.com/alimasry/richedit/render"
	"github.com/alimasry/richedit/store"
)

// Hub manages named editing contexts and routes requests to the right one.
// Contexts are created lazily on first use; each is fully independent.
type Hub struct {
	engine    render.Engine
	snapshots store.SnapshotStore

	mu       sync.RWMutex
	sessions map[string]*Session
	onChange ChangeFunc
}

func NewHub(engine render.Engine, snapshots store.SnapshotStore) *Hub {
	return &Hub{
		engine:    engine,
		snapshots: snapshots,
		sessions:  make(map[string]*Session),
	}
}

// SetOnChange installs the change-notification callback on the hub and on
// every live session.
func (h *Hub) SetOnChange(fn ChangeFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = fn
	for _, s := range h.sessions {
		s.mu.Lock()
		s.onChange = fn
		s.mu.Unlock()
	}
}

// Session returns the context with the given name, creating it on first
// use.
func (h *Hub) Session(name string) *Session {
	h.mu.RLock()
	s := h.sessions[name]
	h.mu.RUnlock()
	if s != nil {
		return s
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if s = h.sessions[name]; s == nil {
		s = New(name, h.engine, h.snapshots)
		s.onChange = h.onChange
		h.sessions[name] = s
	}
	return s
}

// Names lists the live context names.
func (h *Hub) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.sessions))
	for name := range h.sessions {
		names = append(names, name)
	}
	return names
}
