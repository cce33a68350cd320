package slideshow

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry holds the slideshow instances of the site by name.
type Registry struct {
	mu       sync.RWMutex
	managers map[string]*Manager
	keys     map[string]string
	order    []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		managers: make(map[string]*Manager),
		keys:     make(map[string]string),
	}
}

// Register adds m. Names and storage keys must be unique so that no two
// instances share persisted state.
func (r *Registry) Register(m *Manager) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.managers[m.Name()]; exists {
		return fmt.Errorf("slideshow %q already registered", m.Name())
	}
	if owner, exists := r.keys[m.StorageKey()]; exists {
		return fmt.Errorf("storage key %q already used by slideshow %q", m.StorageKey(), owner)
	}

	r.managers[m.Name()] = m
	r.keys[m.StorageKey()] = m.Name()
	r.order = append(r.order, m.Name())

	return nil
}

// Get returns the manager registered under name.
func (r *Registry) Get(name string) (*Manager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.managers[name]
	return m, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Managers returns the registered managers in registration order.
func (r *Registry) Managers() []*Manager {
	r.mu.RLock()
	defer r.mu.RUnlock()

	managers := make([]*Manager, 0, len(r.order))
	for _, name := range r.order {
		managers = append(managers, r.managers[name])
	}
	return managers
}

// InitAll initializes every registered manager. Instances are independent,
// so they load concurrently.
func (r *Registry) InitAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, m := range r.Managers() {
		m := m
		g.Go(func() error {
			if err := m.Init(ctx); err != nil {
				return fmt.Errorf("initializing slideshow %q: %w", m.Name(), err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Close stops every registered manager.
func (r *Registry) Close() {
	for _, m := range r.Managers() {
		m := m
		m.Close()
	}
}
