package circuitbreaker

import "sync"

// Registry holds one independent breaker per external dependency.
// Failure of one dependency never affects another's breaker.
type Registry struct {
	mu       sync.Mutex
	config   Config
	breakers map[string]*CircuitBreaker

	onStateChange func(name string, from, to State)
}

// NewRegistry creates a registry whose breakers share the given configuration.
func NewRegistry(config Config) *Registry {
	return &Registry{
		config:   config,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// OnStateChange sets a callback applied to every breaker, existing and future.
func (r *Registry) OnStateChange(fn func(name string, from, to State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onStateChange = fn
	for _, cb := range r.breakers {
		cb.OnStateChange(fn)
	}
}

// Get returns the breaker for the named dependency, creating it on first use.
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	cb, ok := r.breakers[name]
	if !ok {
		cb = New(name, r.config)
		if r.onStateChange != nil {
			cb.OnStateChange(r.onStateChange)
		}
		r.breakers[name] = cb
	}
	return cb
}

// Stats returns a snapshot for every registered breaker, keyed by name.
func (r *Registry) Stats() map[string]Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Stats, len(r.breakers))
	for name, cb := range r.breakers {
		out[name] = cb.GetStats()
	}
	return out
}
