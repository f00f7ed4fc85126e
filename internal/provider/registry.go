package provider

import (
	"errors"
	"fmt"
	"sync"
)

// Registry holds configured clients in fallback priority order.
type Registry struct {
	mu      sync.RWMutex
	ordered []Client
	byName  map[string]Client
}

// NewRegistry constructs an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Client),
	}
}

// Register appends a client at the lowest priority.
func (r *Registry) Register(c Client) error {
	if c == nil {
		return errors.New("provider must not be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[c.Name()]; exists {
		return fmt.Errorf("provider %q already registered", c.Name())
	}
	r.byName[c.Name()] = c
	r.ordered = append(r.ordered, c)
	return nil
}

// All returns every registered client in priority order.
func (r *Registry) All() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Client, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Chain resolves the named clients in the given order. An empty list yields All.
func (r *Registry) Chain(names []string) ([]Client, error) {
	if len(names) == 0 {
		return r.All(), nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Client, 0, len(names))
	for _, name := range names {
		c, ok := r.byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
		}
		out = append(out, c)
	}
	return out, nil
}

// Lookup returns the client registered under name.
func (r *Registry) Lookup(name string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return c, nil
}
