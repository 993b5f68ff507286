package task

import (
	"maps"
	"slices"
	"sync"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Registry maps capability names to handlers. It is filled once at startup and
// read by the orchestrator; registration after startup is still safe.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler under name. Registering a name twice is an error.
func (r *Registry) Register(name string, h Handler) error {
	if name == "" || h == nil {
		return ferrors.ValidationError("capability name and handler are required").Build()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return ferrors.ValidationError("capability already registered").WithContext("task", name).Build()
	}
	r.handlers[name] = h
	return nil
}

// Get resolves a capability by name.
func (r *Registry) Get(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	if !ok {
		return nil, ferrors.NotFoundError("task not found").WithContext("task", name).Build()
	}
	return h, nil
}

// Names returns registered capability names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.handlers))
}
