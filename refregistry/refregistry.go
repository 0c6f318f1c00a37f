// Package refregistry selects an active primary reference backend by name
// and exposes the capability surface the transaction engine and dispatch
// layer drive it through, grounded on find_ref_storage_backend and
// register_ref_storage_backend in original_source/refs.c.
package refregistry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dacapoday/refdb/refcodec"
)

// ErrUnknownBackend is returned when a name has no registered backend.
var ErrUnknownBackend = errors.New("unknown ref storage backend")

// ErrBackendExists is returned by Register when the name is already taken.
var ErrBackendExists = errors.New("ref storage backend already registered")

// Backend is the capability set a primary reference backend must offer.
// refdb.Backend (the ordered-KV backend) and filesref.Backend do not
// implement it directly, and this module has no adapter for either; only
// this package's tests register implementations.
type Backend interface {
	Name() string
	Resolve(name string) (finalName string, id refcodec.ObjectID, broken bool, err error)
	ForEach(prefix string, fn func(name string, id refcodec.ObjectID) error) error
}

// Registry holds the set of registered backends and the name of the
// currently selected one.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
	active   string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds be under its own Name(). It is an error to register the
// same name twice.
func (r *Registry) Register(be Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := be.Name()
	if _, exists := r.backends[name]; exists {
		return fmt.Errorf("%w: %q", ErrBackendExists, name)
	}
	r.backends[name] = be
	return nil
}

// Exists reports whether name has a registered backend.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.backends[name]
	return ok
}

// SetActive selects the backend to use for subsequent dispatch calls.
func (r *Registry) SetActive(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.backends[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	r.active = name
	return nil
}

// Active returns the currently selected backend, or nil if none has been
// selected.
func (r *Registry) Active() Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.backends[r.active]
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	be, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return be, nil
}
