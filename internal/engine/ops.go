package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/ledger"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/sandbox"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/store"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/txbuild"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/wallet"

	solana "github.com/gagliardetto/solana-go"
)

// ErrStillPending is returned by Reconcile when the transaction's on-chain
// fate remains undetermined within the call's context.
var ErrStillPending = errors.New("engine: transaction fate still undetermined")

// ErrNotReconcilable is returned by Reconcile for records that are not
// awaiting reconciliation.
var ErrNotReconcilable = errors.New("engine: record is not awaiting reconciliation")

// Simulate dry-runs the transaction against current ledger state without
// submitting it. The signer is not wiped; the caller may still execute.
func (e *Engine) Simulate(ctx context.Context, utx *txbuild.Unsigned, signer *wallet.Signer) (*ledger.SimResult, error) {
	if utx == nil || signer == nil {
		return nil, errf(KindValidation, "nil transaction or signer")
	}
	tx, err := utx.Transaction()
	if err != nil {
		return nil, errf(KindValidation, "compile transaction: %v", err)
	}
	if err := signer.SignTransaction(tx); err != nil {
		return nil, errf(KindInternal, "sign: %v", err)
	}
	return e.deps.Ledger.Simulate(ctx, tx)
}

// AcquireSandbox exposes registry acquisition to callers managing sandbox
// lifecycles directly.
func (e *Engine) AcquireSandbox(ownerID, botID, walletAddr string, permissions []string) *sandbox.Sandbox {
	return e.deps.Registry.Acquire(ownerID, botID, walletAddr, permissions)
}

// DestroySandbox tears down every sandbox for the (owner, bot) pair.
func (e *Engine) DestroySandbox(ownerID, botID string) int {
	return e.deps.Registry.Destroy(ownerID, botID)
}

// QuotaStatus aggregates counters across the pair's sandboxes. Remaining
// window figures are the tightest across wallets.
func (e *Engine) QuotaStatus(ownerID, botID string) QuotaStatus {
	boxes := e.deps.Registry.ForBot(ownerID, botID)
	qs := QuotaStatus{RemainingThisMinute: -1, RemainingThisHour: -1}
	for _, sb := range boxes {
		q := sb.Quota()
		qs.ExecutionsToday += q.ExecutionsToday
		qs.ExecutionsThisMinute += q.ExecutionsThisMinute
		qs.ExecutionsThisHour += q.ExecutionsThisHour
		qs.SpendToday += q.SpendToday
		if qs.RemainingThisMinute < 0 || q.RemainingThisMinute < qs.RemainingThisMinute {
			qs.RemainingThisMinute = q.RemainingThisMinute
		}
		if qs.RemainingThisHour < 0 || q.RemainingThisHour < qs.RemainingThisHour {
			qs.RemainingThisHour = q.RemainingThisHour
		}
	}
	if qs.RemainingThisMinute < 0 {
		qs.RemainingThisMinute = 0
		qs.RemainingThisHour = 0
	}
	if e.cfg.MaxDailySpendLamports > qs.SpendToday {
		qs.RemainingDailySpend = e.cfg.MaxDailySpendLamports - qs.SpendToday
	}
	return qs
}

// SweepReservations reclaims expired, never-used nonce reservations.
func (e *Engine) SweepReservations() int {
	return e.deps.Guard.Sweep()
}

// Reconcile settles the fate of a submission that timed out during
// confirmation. The record was left in SUBMITTING with its nonce reservation
// extended; this polls until the ledger reports a determined outcome or ctx
// expires, then promotes the record to CONFIRMED (marking the nonce used) or
// FAILED. Naive resubmission with the same payload stays blocked by the
// reservation the whole time.
func (e *Engine) Reconcile(ctx context.Context, recordID string) (store.ExecutionRecord, error) {
	rec, err := e.deps.Store.GetExecutionRecord(recordID)
	if err != nil {
		return store.ExecutionRecord{}, err
	}
	if rec.Status != store.StatusSubmitting || rec.TxSignature == "" {
		return rec, ErrNotReconcilable
	}
	sig, err := solana.SignatureFromBase58(rec.TxSignature)
	if err != nil {
		return rec, fmt.Errorf("engine: bad stored signature: %w", err)
	}

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()
	for {
		status, serr := e.deps.Ledger.ConfirmationStatus(ctx, sig)
		if serr != nil {
			e.log.Warn().Err(serr).Str("record", recordID).Msg("reconcile poll error")
		} else {
			switch status {
			case ledger.StatusConfirmed:
				return e.settleConfirmed(rec)
			case ledger.StatusFailed:
				return e.settleFailed(rec)
			}
		}
		select {
		case <-ctx.Done():
			return rec, ErrStillPending
		case <-ticker.C:
		}
	}
}

func (e *Engine) settleConfirmed(rec store.ExecutionRecord) (store.ExecutionRecord, error) {
	if err := e.deps.Guard.MarkUsed(rec.OwnerID, rec.Nonce); err != nil {
		e.log.Error().Err(err).Str("record", rec.ID).Msg("mark nonce used failed during reconcile")
	}
	completed := e.now().UTC()
	patch := store.Patch{Status: store.StatusConfirmed, CompletedAt: &completed}
	if err := e.deps.Store.UpdateExecutionRecord(rec.ID, patch); err != nil {
		return rec, err
	}
	return e.deps.Store.GetExecutionRecord(rec.ID)
}

func (e *Engine) settleFailed(rec store.ExecutionRecord) (store.ExecutionRecord, error) {
	completed := e.now().UTC()
	patch := store.Patch{
		Status:       store.StatusFailed,
		CompletedAt:  &completed,
		ErrorMessage: "failed on chain (settled by reconciliation)",
	}
	if err := e.deps.Store.UpdateExecutionRecord(rec.ID, patch); err != nil {
		return rec, err
	}
	return e.deps.Store.GetExecutionRecord(rec.ID)
}
