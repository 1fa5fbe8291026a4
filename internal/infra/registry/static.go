package registry

import (
	"sync"

	"github.com/vietddude/walletlink/internal/core/domain"
)

// Static is an in-process provider registry. Hosts that inject providers
// directly register them here; absence of a name is the not-installed case.
type Static struct {
	mu        sync.RWMutex
	providers map[string]domain.Provider
	order     []string
}

func NewStatic(providers ...domain.Provider) *Static {
	r := &Static{providers: make(map[string]domain.Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider under its name.
func (r *Static) Register(p domain.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.providers[name] = p
}

// Unregister removes a provider.
func (r *Static) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; !exists {
		return
	}
	delete(r.providers, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Static) Lookup(name string) (domain.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns provider names in registration order.
func (r *Static) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
