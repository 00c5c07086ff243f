// Package sandbox isolates execution context per (owner, bot, wallet) tuple:
// capability checks, rate quotas, spend accounting, and ephemeral state.
package sandbox

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	// Wildcard grants every capability.
	Wildcard = "*"

	// DefaultPerMinute and DefaultPerHour cap executions admitted through
	// Run within the corresponding lazy windows.
	DefaultPerMinute = 10
	DefaultPerHour   = 100
)

var (
	ErrPermissionDenied = errors.New("sandbox: permission denied")
	ErrQuotaExceeded    = errors.New("sandbox: execution quota exceeded")
)

// Key identifies one sandbox. Sandboxes for different owners never share
// counters or state.
type Key struct {
	OwnerID string
	BotID   string
	Wallet  string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.OwnerID, k.BotID, k.Wallet)
}

type window struct {
	start time.Time
	count int
}

// Sandbox is one isolated execution context. All methods are safe for
// concurrent use; the quota check and increment happen under one lock so at
// most cap calls can be admitted per window.
type Sandbox struct {
	key Key

	mu       sync.Mutex
	caps     map[string]struct{}
	minute   window
	hour     window
	day      window
	daySpent uint64
	state    map[string]any

	perMinute int
	perHour   int
	now       func() time.Time
}

// Quota is a point-in-time view of the sandbox counters.
type Quota struct {
	ExecutionsThisMinute int
	ExecutionsThisHour   int
	ExecutionsToday      int
	SpendToday           uint64
	RemainingThisMinute  int
	RemainingThisHour    int
}

func newSandbox(key Key, permissions []string, perMinute, perHour int, now func() time.Time) *Sandbox {
	caps := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		caps[p] = struct{}{}
	}
	return &Sandbox{
		key:       key,
		caps:      caps,
		state:     make(map[string]any),
		perMinute: perMinute,
		perHour:   perHour,
		now:       now,
	}
}

// Key returns the identity tuple this sandbox is scoped to.
func (s *Sandbox) Key() Key { return s.key }

// Allowed reports whether the capability set covers permission.
func (s *Sandbox) Allowed(permission string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allowedLocked(permission)
}

func (s *Sandbox) allowedLocked(permission string) bool {
	if _, ok := s.caps[Wildcard]; ok {
		return true
	}
	_, ok := s.caps[permission]
	return ok
}

// Run admits op through the permission and quota gates, counting the
// execution against the minute, hour, and day windows. Counters reset lazily
// when the current time crosses the window boundary recorded at last reset,
// so an idle sandbox resets on next use.
func (s *Sandbox) Run(permission string, op func() error) error {
	s.mu.Lock()
	if !s.allowedLocked(permission) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s requires %q", ErrPermissionDenied, s.key, permission)
	}
	now := s.now()
	rollWindow(&s.minute, now, time.Minute)
	rollWindow(&s.hour, now, time.Hour)
	if s.minute.count >= s.perMinute || s.hour.count >= s.perHour {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, s.key)
	}
	s.minute.count++
	s.hour.count++
	if rollWindow(&s.day, now, 24*time.Hour) {
		s.daySpent = 0
	}
	s.day.count++
	s.mu.Unlock()

	return op()
}

func rollWindow(w *window, now time.Time, span time.Duration) bool {
	if w.start.IsZero() || now.Sub(w.start) >= span {
		w.start = now
		w.count = 0
		return true
	}
	return false
}

// AddSpend accumulates lamports against today's spend total.
func (s *Sandbox) AddSpend(lamports uint64) {
	s.mu.Lock()
	if rollWindow(&s.day, s.now(), 24*time.Hour) {
		s.daySpent = 0
	}
	s.daySpent += lamports
	s.mu.Unlock()
}

// SpendToday returns lamports spent in the current day window.
func (s *Sandbox) SpendToday() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rollWindow(&s.day, s.now(), 24*time.Hour) {
		s.daySpent = 0
	}
	return s.daySpent
}

// Quota snapshots the counters after applying any pending lazy resets.
func (s *Sandbox) Quota() Quota {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	rollWindow(&s.minute, now, time.Minute)
	rollWindow(&s.hour, now, time.Hour)
	if rollWindow(&s.day, now, 24*time.Hour) {
		s.daySpent = 0
	}
	return Quota{
		ExecutionsThisMinute: s.minute.count,
		ExecutionsThisHour:   s.hour.count,
		ExecutionsToday:      s.day.count,
		SpendToday:           s.daySpent,
		RemainingThisMinute:  s.perMinute - s.minute.count,
		RemainingThisHour:    s.perHour - s.hour.count,
	}
}

// SetState stashes short-lived context under key.
func (s *Sandbox) SetState(key string, value any) {
	s.mu.Lock()
	s.state[key] = value
	s.mu.Unlock()
}

// State returns the value stored under key.
func (s *Sandbox) State(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.state[key]
	return v, ok
}

// ClearState empties the ephemeral state map. Must be called after every Run
// completes and on destruction.
func (s *Sandbox) ClearState() {
	s.mu.Lock()
	s.state = make(map[string]any)
	s.mu.Unlock()
}

// StateLen reports the number of ephemeral entries currently held.
func (s *Sandbox) StateLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state)
}
