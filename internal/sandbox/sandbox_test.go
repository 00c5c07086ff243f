package sandbox

import (
	"errors"
	"testing"
	"time"
)

func newTestRegistry(perMinute, perHour int) (*Registry, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cur := &now
	r := NewRegistry(
		WithQuotas(perMinute, perHour),
		WithClock(func() time.Time { return *cur }),
	)
	return r, cur
}

func TestRunPermissionDenied(t *testing.T) {
	r, _ := newTestRegistry(10, 100)
	sb := r.Acquire("alice", "bot1", "w1", []string{"read"})
	err := sb.Run("execute", func() error { return nil })
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func TestRunWildcardGrantsAll(t *testing.T) {
	r, _ := newTestRegistry(10, 100)
	sb := r.Acquire("alice", "bot1", "w1", []string{Wildcard})
	ran := false
	if err := sb.Run("execute", func() error { ran = true; return nil }); err != nil {
		t.Fatalf("wildcard should grant execute: %v", err)
	}
	if !ran {
		t.Fatalf("operation did not run")
	}
}

func TestRunQuotaAtCap(t *testing.T) {
	r, _ := newTestRegistry(3, 100)
	sb := r.Acquire("alice", "bot1", "w1", []string{"execute"})
	for i := 0; i < 3; i++ {
		if err := sb.Run("execute", func() error { return nil }); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}
	err := sb.Run("execute", func() error { return nil })
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected quota error at cap, got %v", err)
	}
}

func TestQuotaLazyWindowReset(t *testing.T) {
	r, cur := newTestRegistry(2, 100)
	sb := r.Acquire("alice", "bot1", "w1", []string{"execute"})
	for i := 0; i < 2; i++ {
		if err := sb.Run("execute", func() error { return nil }); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}
	if err := sb.Run("execute", func() error { return nil }); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}

	// idle past the window; the counter resets lazily on next use
	*cur = cur.Add(2 * time.Minute)
	if err := sb.Run("execute", func() error { return nil }); err != nil {
		t.Fatalf("expected reset window to admit, got %v", err)
	}
	q := sb.Quota()
	if q.ExecutionsThisMinute != 1 {
		t.Fatalf("expected fresh minute counter of 1, got %d", q.ExecutionsThisMinute)
	}
}

func TestHourlyQuota(t *testing.T) {
	r, _ := newTestRegistry(100, 2)
	sb := r.Acquire("alice", "bot1", "w1", []string{"execute"})
	for i := 0; i < 2; i++ {
		if err := sb.Run("execute", func() error { return nil }); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}
	if err := sb.Run("execute", func() error { return nil }); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected hourly quota error, got %v", err)
	}
}

func TestRunPropagatesOperationError(t *testing.T) {
	r, _ := newTestRegistry(10, 100)
	sb := r.Acquire("alice", "bot1", "w1", []string{"execute"})
	want := errors.New("boom")
	if err := sb.Run("execute", func() error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected operation error to propagate, got %v", err)
	}
	// the failed run still counted against quota
	if q := sb.Quota(); q.ExecutionsThisMinute != 1 {
		t.Fatalf("failed run should count, got %d", q.ExecutionsThisMinute)
	}
}

func TestIsolationAcrossOwners(t *testing.T) {
	r, _ := newTestRegistry(2, 100)
	a := r.Acquire("alice", "bot1", "w1", []string{"execute"})
	b := r.Acquire("bob", "bot1", "w1", []string{"execute"})
	if a == b {
		t.Fatalf("different owners must never share a sandbox")
	}

	a.SetState("k", "alice-value")
	if _, ok := b.State("k"); ok {
		t.Fatalf("state leaked across owners")
	}

	for i := 0; i < 2; i++ {
		if err := a.Run("execute", func() error { return nil }); err != nil {
			t.Fatalf("alice run %d: %v", i+1, err)
		}
	}
	// alice is at cap; bob is untouched
	if err := b.Run("execute", func() error { return nil }); err != nil {
		t.Fatalf("bob must have independent counters: %v", err)
	}

	a.ClearState()
	if q := b.Quota(); q.ExecutionsThisMinute != 1 {
		t.Fatalf("clearing alice state disturbed bob's counters")
	}
}

func TestAcquireReturnsSameSandboxForSameKey(t *testing.T) {
	r, _ := newTestRegistry(10, 100)
	a := r.Acquire("alice", "bot1", "w1", []string{"execute"})
	b := r.Acquire("alice", "bot1", "w1", nil)
	if a != b {
		t.Fatalf("same key must return the same sandbox")
	}
}

func TestDestroyDropsAllState(t *testing.T) {
	r, _ := newTestRegistry(1, 100)
	sb := r.Acquire("alice", "bot1", "w1", []string{"execute"})
	sb.SetState("k", "v")
	if err := sb.Run("execute", func() error { return nil }); err != nil {
		t.Fatalf("run: %v", err)
	}

	if removed := r.Destroy("alice", "bot1"); removed != 1 {
		t.Fatalf("expected one sandbox destroyed, got %d", removed)
	}
	if sb.StateLen() != 0 {
		t.Fatalf("destroy must clear ephemeral state")
	}

	fresh := r.Acquire("alice", "bot1", "w1", []string{"execute"})
	if fresh == sb {
		t.Fatalf("acquire after destroy must create a fresh sandbox")
	}
	if err := fresh.Run("execute", func() error { return nil }); err != nil {
		t.Fatalf("fresh sandbox must have zeroed counters: %v", err)
	}
}

func TestSpendAccounting(t *testing.T) {
	r, cur := newTestRegistry(10, 100)
	sb := r.Acquire("alice", "bot1", "w1", []string{"execute"})
	sb.AddSpend(1_000)
	sb.AddSpend(2_500)
	if got := sb.SpendToday(); got != 3_500 {
		t.Fatalf("spend today = %d, want 3500", got)
	}
	*cur = cur.Add(25 * time.Hour)
	if got := sb.SpendToday(); got != 0 {
		t.Fatalf("spend must reset after day rollover, got %d", got)
	}
}
