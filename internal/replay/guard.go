// Package replay rejects transactions that have been seen before, are outside
// their freshness window, or exceed a per-owner submission rate.
package replay

import (
	"errors"
	"sync"
	"time"
)

const (
	// DefaultFreshnessWindow bounds how old a transaction timestamp may be.
	DefaultFreshnessWindow = 5 * time.Minute
	// DefaultRatePerMinute caps submissions per owner per minute.
	DefaultRatePerMinute = 10
	// DefaultReservationTTL is how long an unused nonce reservation is held
	// before the sweep may reclaim it.
	DefaultReservationTTL = 5 * time.Minute
)

// Layer identifies which of the four checks rejected a transaction.
type Layer string

const (
	LayerNonce     Layer = "nonce"
	LayerHash      Layer = "hash"
	LayerFreshness Layer = "freshness"
	LayerRate      Layer = "rate"
)

var (
	ErrNonceReused = errors.New("replay: nonce already recorded for owner")
	ErrHashSeen    = errors.New("replay: transaction hash already recorded")
	ErrFutureDated = errors.New("replay: transaction timestamp is in the future")
	ErrStale       = errors.New("replay: transaction older than freshness window")
	ErrRateLimited = errors.New("replay: owner submission rate exceeded")
	ErrUnknown     = errors.New("replay: no reservation for owner and nonce")
)

// LayerOf maps a guard rejection to the layer that produced it. Returns an
// empty layer for non-guard errors.
func LayerOf(err error) Layer {
	switch {
	case errors.Is(err, ErrNonceReused):
		return LayerNonce
	case errors.Is(err, ErrHashSeen):
		return LayerHash
	case errors.Is(err, ErrFutureDated), errors.Is(err, ErrStale):
		return LayerFreshness
	case errors.Is(err, ErrRateLimited):
		return LayerRate
	}
	return ""
}

// NonceRecord tracks one reservation. A record is pending from Reserve until
// MarkUsed; used records are retained permanently for audit.
type NonceRecord struct {
	OwnerID   string
	Nonce     string
	TxHash    string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

type nonceKey struct {
	owner string
	nonce string
}

type rateWindow struct {
	start time.Time
	count int
}

// Guard holds the nonce set, the global hash set, and per-owner rate windows
// behind a single mutex. The check-then-reserve pattern is short, so one lock
// is enough; callers needing atomicity use CheckAndReserve.
type Guard struct {
	mu     sync.Mutex
	window time.Duration
	rate   int
	now    func() time.Time

	nonces map[nonceKey]*NonceRecord
	hashes map[string]nonceKey
	rates  map[string]*rateWindow
}

// Option configures guard construction.
type Option func(*Guard)

// WithFreshnessWindow overrides the default 5 minute freshness window.
func WithFreshnessWindow(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.window = d
		}
	}
}

// WithRatePerMinute overrides the default per-owner rate cap.
func WithRatePerMinute(n int) Option {
	return func(g *Guard) {
		if n > 0 {
			g.rate = n
		}
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGuard constructs a guard with the default window and rate cap.
func NewGuard(opts ...Option) *Guard {
	g := &Guard{
		window: DefaultFreshnessWindow,
		rate:   DefaultRatePerMinute,
		now:    time.Now,
		nonces: make(map[nonceKey]*NonceRecord),
		hashes: make(map[string]nonceKey),
		rates:  make(map[string]*rateWindow),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check runs the four layers in order and returns the first failure: nonce
// uniqueness per owner, hash uniqueness across all owners, timestamp
// freshness, then the rate cap. A passing check counts against the owner's
// rate window.
func (g *Guard) Check(ownerID, nonce, txHash string, ts time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkLocked(ownerID, nonce, txHash, ts); err != nil {
		return err
	}
	g.admitLocked(ownerID)
	return nil
}

// Verify runs the four layers without admitting or reserving anything. It is
// the read-only fast path: a rejection here is authoritative, a pass is not,
// so callers must still CheckAndReserve before submitting.
func (g *Guard) Verify(ownerID, nonce, txHash string, ts time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.checkLocked(ownerID, nonce, txHash, ts)
}

// Reserve records the nonce and hash as pending before submission. Callers
// that already hold a passing Check should prefer CheckAndReserve, which
// closes the race between the two.
func (g *Guard) Reserve(ownerID, nonce, txHash string, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := nonceKey{owner: ownerID, nonce: nonce}
	if _, ok := g.nonces[key]; ok {
		return ErrNonceReused
	}
	if _, ok := g.hashes[txHash]; ok {
		return ErrHashSeen
	}
	g.reserveLocked(key, txHash, ttl)
	return nil
}

// CheckAndReserve runs Check and Reserve as one atomic step relative to other
// callers, closing the replay window between validation and submission.
func (g *Guard) CheckAndReserve(ownerID, nonce, txHash string, ts time.Time, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkLocked(ownerID, nonce, txHash, ts); err != nil {
		return err
	}
	g.admitLocked(ownerID)
	g.reserveLocked(nonceKey{owner: ownerID, nonce: nonce}, txHash, ttl)
	return nil
}

// MarkUsed flags a reservation as consumed after on-chain confirmation. Used
// records are never reclaimed.
func (g *Guard) MarkUsed(ownerID, nonce string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.nonces[nonceKey{owner: ownerID, nonce: nonce}]
	if !ok {
		return ErrUnknown
	}
	if rec.UsedAt == nil {
		now := g.now().UTC()
		rec.UsedAt = &now
	}
	return nil
}

// Extend pushes out a pending reservation's expiry. Used while a submitted
// transaction's on-chain fate is still unknown, so the nonce cannot be
// reclaimed and reused underneath it.
func (g *Guard) Extend(ownerID, nonce string, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.nonces[nonceKey{owner: ownerID, nonce: nonce}]
	if !ok {
		return ErrUnknown
	}
	rec.ExpiresAt = g.now().UTC().Add(ttl)
	return nil
}

// Record returns a copy of the reservation for an owner and nonce.
func (g *Guard) Record(ownerID, nonce string) (NonceRecord, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.nonces[nonceKey{owner: ownerID, nonce: nonce}]
	if !ok {
		return NonceRecord{}, false
	}
	return *rec, true
}

// Sweep reclaims expired reservations that were never used and returns how
// many were dropped. Used records are retained for audit.
func (g *Guard) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now().UTC()
	dropped := 0
	for key, rec := range g.nonces {
		if rec.UsedAt == nil && now.After(rec.ExpiresAt) {
			delete(g.nonces, key)
			if cur, ok := g.hashes[rec.TxHash]; ok && cur == key {
				delete(g.hashes, rec.TxHash)
			}
			dropped++
		}
	}
	return dropped
}

func (g *Guard) checkLocked(ownerID, nonce, txHash string, ts time.Time) error {
	if _, ok := g.nonces[nonceKey{owner: ownerID, nonce: nonce}]; ok {
		return ErrNonceReused
	}
	if _, ok := g.hashes[txHash]; ok {
		return ErrHashSeen
	}
	now := g.now().UTC()
	age := now.Sub(ts)
	if age < 0 {
		return ErrFutureDated
	}
	if age > g.window {
		return ErrStale
	}
	win := g.rates[ownerID]
	if win != nil && now.Sub(win.start) < time.Minute && win.count >= g.rate {
		return ErrRateLimited
	}
	return nil
}

// admitLocked counts one admission against the owner's current window,
// resetting lazily when the window has rolled over.
func (g *Guard) admitLocked(ownerID string) {
	now := g.now().UTC()
	win := g.rates[ownerID]
	if win == nil || now.Sub(win.start) >= time.Minute {
		g.rates[ownerID] = &rateWindow{start: now, count: 1}
		return
	}
	win.count++
}

func (g *Guard) reserveLocked(key nonceKey, txHash string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	now := g.now().UTC()
	g.nonces[key] = &NonceRecord{
		OwnerID:   key.owner,
		Nonce:     key.nonce,
		TxHash:    txHash,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	g.hashes[txHash] = key
}
