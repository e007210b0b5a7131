package interfaces

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps each mode to its backend.
type Registry struct {
	mu       sync.RWMutex
	backends map[Mode]Backend
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: map[Mode]Backend{}}
}

// Register installs a backend. The mode must be in the closed set and not
// yet registered.
func (r *Registry) Register(b Backend) error {
	if b == nil {
		return fmt.Errorf("interfaces: backend is required")
	}
	mode := b.Mode()
	if !mode.Valid() {
		return &UnsupportedModeError{Mode: mode}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.backends[mode]; exists {
		return fmt.Errorf("interfaces: %s already registered", mode)
	}
	r.backends[mode] = b
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(b Backend) {
	if err := r.Register(b); err != nil {
		panic(err)
	}
}

// Lookup returns the backend for mode.
func (r *Registry) Lookup(mode Mode) (Backend, error) {
	if !mode.Valid() {
		return nil, &UnsupportedModeError{Mode: mode}
	}
	r.mu.RLock()
	b, ok := r.backends[mode]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnsupportedModeError{Mode: mode}
	}
	return b, nil
}

// Modes returns the registered modes, sorted.
func (r *Registry) Modes() []Mode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	modes := make([]Mode, 0, len(r.backends))
	for m := range r.backends {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

// Missing lists supported modes without a backend.
func (r *Registry) Missing() []Mode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var missing []Mode
	for _, m := range Modes() {
		if _, ok := r.backends[m]; !ok {
			missing = append(missing, m)
		}
	}
	return missing
}
