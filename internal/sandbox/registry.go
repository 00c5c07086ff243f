package sandbox

import (
	"sync"
	"time"
)

// Registry owns every live sandbox. It is the single point guaranteeing that
// no two owners ever share an execution context.
type Registry struct {
	mu        sync.Mutex
	sandboxes map[Key]*Sandbox
	perMinute int
	perHour   int
	now       func() time.Time
}

// RegistryOption configures registry construction.
type RegistryOption func(*Registry)

// WithQuotas overrides the per-minute and per-hour caps applied to new
// sandboxes.
func WithQuotas(perMinute, perHour int) RegistryOption {
	return func(r *Registry) {
		if perMinute > 0 {
			r.perMinute = perMinute
		}
		if perHour > 0 {
			r.perHour = perHour
		}
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry constructs an empty registry with default quotas.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		sandboxes: make(map[Key]*Sandbox),
		perMinute: DefaultPerMinute,
		perHour:   DefaultPerHour,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire returns the sandbox for the exact key, creating it lazily on first
// use. Permissions only apply at creation; an existing sandbox keeps its
// original capability set.
func (r *Registry) Acquire(ownerID, botID, wallet string, permissions []string) *Sandbox {
	key := Key{OwnerID: ownerID, BotID: botID, Wallet: wallet}
	r.mu.Lock()
	defer r.mu.Unlock()
	if sb, ok := r.sandboxes[key]; ok {
		return sb
	}
	sb := newSandbox(key, permissions, r.perMinute, r.perHour, r.now)
	r.sandboxes[key] = sb
	return sb
}

// Get returns the sandbox for key without creating one.
func (r *Registry) Get(ownerID, botID, wallet string) (*Sandbox, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sb, ok := r.sandboxes[Key{OwnerID: ownerID, BotID: botID, Wallet: wallet}]
	return sb, ok
}

// ForBot returns every live sandbox belonging to the (owner, bot) pair.
func (r *Registry) ForBot(ownerID, botID string) []*Sandbox {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Sandbox
	for key, sb := range r.sandboxes {
		if key.OwnerID == ownerID && key.BotID == botID {
			out = append(out, sb)
		}
	}
	return out
}

// Destroy clears and removes every sandbox for the (owner, bot) pair. A
// subsequent Acquire creates a fresh context; no state survives destruction.
func (r *Registry) Destroy(ownerID, botID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, sb := range r.sandboxes {
		if key.OwnerID == ownerID && key.BotID == botID {
			sb.ClearState()
			delete(r.sandboxes, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of live sandboxes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sandboxes)
}
