// Package engine orchestrates sandboxed execution of signed transactions:
// preflight checks, replay protection, advisory review, submission,
// confirmation, profit accounting, and unconditional key hygiene.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/advisory"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/audit"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/bot"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/distribute"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/ledger"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/metrics"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/replay"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/sandbox"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/store"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/txbuild"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/wallet"
)

// PermissionExecute gates sign-and-submit inside a sandbox.
const PermissionExecute = "execute"

// reconcileTTL keeps a timed-out nonce reservation alive while the
// transaction's on-chain fate is still unknown.
const reconcileTTL = time.Hour

// Config tunes the engine's guard-rails.
type Config struct {
	MinBalanceLamports    uint64
	MaxFeePerTxLamports   uint64
	MaxDailySpendLamports uint64
	NonceTTL              time.Duration
	ConfirmTimeout        time.Duration
	PollInterval          time.Duration
	DistributionEnabled   bool
	DistributionShareBps  int
	DistributionRecipient solana.PublicKey
}

func (c *Config) fillDefaults() {
	if c.NonceTTL <= 0 {
		c.NonceTTL = replay.DefaultReservationTTL
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = 30 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
}

// Deps are the collaborators the engine consumes. Advisor and Sender may be
// nil, disabling the advisory step and profit distribution respectively.
type Deps struct {
	Ledger   ledger.Client
	Guard    *replay.Guard
	Registry *sandbox.Registry
	Store    store.Store
	Audit    audit.Sink
	Advisor  advisory.Advisor
	Sender   distribute.Sender
}

// Options tune a single Execute call.
type Options struct {
	// Permissions granted if the sandbox is created by this call. Defaults
	// to just the execute capability.
	Permissions []string
	// SkipAdvisory bypasses the advisory step even when an advisor is wired.
	SkipAdvisory bool
}

// Result is the only way an attempt's outcome leaves the engine. Errors from
// the taxonomy are folded into Status/Kind/ErrorMessage, never returned.
type Result struct {
	RecordID     string
	Status       store.Status
	Kind         Kind // empty on success
	Signature    string
	ProfitOrLoss int64
	GasSpent     uint64
	ErrorMessage string
}

// QuotaStatus aggregates quota usage across every sandbox of one (owner, bot)
// pair.
type QuotaStatus struct {
	ExecutionsToday      int
	ExecutionsThisMinute int
	ExecutionsThisHour   int
	SpendToday           uint64
	RemainingThisMinute  int
	RemainingThisHour    int
	RemainingDailySpend  uint64
}

// Engine is safe for concurrent use by many callers across many owners.
type Engine struct {
	log  zerolog.Logger
	cfg  Config
	deps Deps
	now  func() time.Time
}

// New wires an engine. Store and Audit must be non-nil; use the in-memory
// implementations when persistence is external.
func New(log zerolog.Logger, cfg Config, deps Deps) *Engine {
	cfg.fillDefaults()
	return &Engine{log: log, cfg: cfg, deps: deps, now: time.Now}
}

// WithClock injects a time source for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Execute runs one attempt end to end. Whatever happens, the signer's secret
// bytes are zeroized and the sandbox's ephemeral state is cleared before
// Execute returns.
func (e *Engine) Execute(ctx context.Context, botCfg *bot.Config, utx *txbuild.Unsigned, signer *wallet.Signer, opts Options) (res Result) {
	recID := uuid.NewString()
	started := e.now().UTC()
	res = Result{RecordID: recID, Status: store.StatusPending}

	var sb *sandbox.Sandbox
	var nonce string
	finished := false

	// finish writes the terminal record patch, the audit entry, and the
	// metrics sample exactly once per attempt.
	finish := func(recStatus, resStatus store.Status, kind Kind, msg string, patch store.Patch) {
		if finished {
			return
		}
		finished = true
		completed := e.now().UTC()
		patch.Status = recStatus
		patch.CompletedAt = &completed
		patch.ErrorMessage = msg
		if err := e.deps.Store.UpdateExecutionRecord(recID, patch); err != nil {
			e.log.Error().Err(err).Str("record", recID).Msg("record update failed")
		}
		res.Status = resStatus
		res.Kind = kind
		res.ErrorMessage = msg
		metrics.ExecutionsTotal.WithLabelValues(string(resStatus)).Inc()

		decision := audit.DecisionFailed
		switch resStatus {
		case store.StatusConfirmed:
			decision = audit.DecisionConfirmed
		case store.StatusPreflightFailed, store.StatusReplayRejected, store.StatusAdvisoryAborted:
			decision = audit.DecisionRejected
		}
		entry := audit.Entry{
			RecordID:  recID,
			Nonce:     nonce,
			Decision:  decision,
			Reason:    msg,
			Signature: res.Signature,
			Ts:        completed,
		}
		if botCfg != nil {
			entry.OwnerID = botCfg.OwnerID
			entry.BotID = botCfg.ID
		}
		e.deps.Audit.Append(entry)
	}

	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Str("record", recID).Msg("execution panicked")
			finish(store.StatusFailed, store.StatusFailed, KindInternal, fmt.Sprintf("panic: %v", r), store.Patch{})
		}
		// Key wipe and state clear run on every exit path, no exceptions.
		signer.Wipe()
		if sb != nil {
			sb.ClearState()
		}
	}()

	rec := store.ExecutionRecord{
		ID:        recID,
		Status:    store.StatusPending,
		StartedAt: started,
	}
	if botCfg != nil {
		rec.BotID = botCfg.ID
		rec.OwnerID = botCfg.OwnerID
	}
	if err := e.deps.Store.InsertExecutionRecord(rec); err != nil {
		e.log.Error().Err(err).Msg("record insert failed")
	}

	// Validation happens before any I/O.
	if verr := validateInput(botCfg, utx, signer); verr != nil {
		finish(store.StatusFailed, store.StatusFailed, KindValidation, verr.Error(), store.Patch{})
		return res
	}

	feePayer := utx.FeePayer()
	perms := opts.Permissions
	if len(perms) == 0 {
		perms = []string{PermissionExecute}
	}
	sb = e.deps.Registry.Acquire(botCfg.OwnerID, botCfg.ID, feePayer.String(), perms)

	// Replay fast path: a payload the guard has already seen is rejected
	// before any network call. Nothing is admitted or reserved here; the
	// authoritative check-and-reserve runs after preflight, so a failed
	// preflight never consumes the nonce.
	nonce = uuid.NewString()
	txHash := replay.HashTransaction(feePayer, utx.Instructions())
	rejectReplay := func(err error) {
		metrics.ReplayRejectionsTotal.WithLabelValues(string(replay.LayerOf(err))).Inc()
		kind := KindReplay
		if replay.LayerOf(err) == replay.LayerRate {
			// the rate layer is a quota, not a replay, from the caller's view
			kind = KindQuota
		}
		finish(store.StatusReplayRejected, store.StatusReplayRejected, kind, err.Error(), store.Patch{})
	}
	if err := e.deps.Guard.Verify(botCfg.OwnerID, nonce, txHash, utx.CreatedAt()); err != nil {
		rejectReplay(err)
		return res
	}

	// Preflight: balance floor. Fails before a nonce is consumed or any
	// submission is attempted.
	balance, err := e.deps.Ledger.Balance(ctx, feePayer)
	if err != nil {
		finish(store.StatusFailed, store.StatusFailed, KindInternal, fmt.Sprintf("balance fetch: %v", err), store.Patch{})
		return res
	}
	if balance < e.cfg.MinBalanceLamports {
		finish(store.StatusPreflightFailed, store.StatusPreflightFailed, KindPreflight,
			fmt.Sprintf("balance %d below minimum %d", balance, e.cfg.MinBalanceLamports), store.Patch{})
		return res
	}

	// Spend caps are enforced before any network call.
	gasFee := utx.DeclaredFee()
	if e.cfg.MaxFeePerTxLamports > 0 && gasFee > e.cfg.MaxFeePerTxLamports {
		finish(store.StatusFailed, store.StatusFailed, KindQuota,
			fmt.Sprintf("declared fee %d exceeds per-transaction cap %d", gasFee, e.cfg.MaxFeePerTxLamports), store.Patch{})
		return res
	}
	if e.cfg.MaxDailySpendLamports > 0 && sb.SpendToday()+gasFee > e.cfg.MaxDailySpendLamports {
		finish(store.StatusFailed, store.StatusFailed, KindQuota,
			fmt.Sprintf("daily spend %d + fee %d exceeds cap %d", sb.SpendToday(), gasFee, e.cfg.MaxDailySpendLamports), store.Patch{})
		return res
	}

	// Replay protection: check and reserve are one atomic step so no other
	// caller can slip the same nonce or hash in between.
	if err := e.deps.Guard.CheckAndReserve(botCfg.OwnerID, nonce, txHash, utx.CreatedAt(), e.cfg.NonceTTL); err != nil {
		rejectReplay(err)
		return res
	}
	// The nonce travels in the record so Reconcile can settle a timed-out
	// submission against the same reservation.
	_ = e.deps.Store.UpdateExecutionRecord(recID, store.Patch{Nonce: nonce})

	// Advisory: errors are logged and ignored; only an explicit abort halts.
	if e.deps.Advisor != nil && !opts.SkipAdvisory {
		advice, aerr := e.deps.Advisor.Analyze(ctx, advisory.Context{
			OwnerID:     botCfg.OwnerID,
			BotID:       botCfg.ID,
			BotType:     string(botCfg.BotType),
			FeePayer:    feePayer.String(),
			TxHash:      txHash,
			DeclaredFee: gasFee,
			Balance:     balance,
		})
		switch {
		case aerr != nil:
			e.log.Warn().Err(aerr).Str("record", recID).Msg("advisory unavailable, proceeding")
		case advice.Recommendation == advisory.Abort:
			finish(store.StatusAdvisoryAborted, store.StatusAdvisoryAborted, KindAdvisoryAbort, advice.Reasoning, store.Patch{})
			return res
		}
	}

	// Sign, submit, and confirm inside the sandbox under the execute
	// capability. The quota check and increment are atomic inside Run.
	var (
		sig        solana.Signature
		preBalance uint64
		submitTime time.Time
	)
	runErr := sb.Run(PermissionExecute, func() error {
		var ierr error
		preBalance, ierr = e.deps.Ledger.Balance(ctx, feePayer)
		if ierr != nil {
			return errf(KindInternal, "pre-balance snapshot: %v", ierr)
		}
		tx, ierr := utx.Transaction()
		if ierr != nil {
			return errf(KindValidation, "compile transaction: %v", ierr)
		}
		if ierr = signer.SignTransaction(tx); ierr != nil {
			return errf(KindInternal, "sign: %v", ierr)
		}
		_ = e.deps.Store.UpdateExecutionRecord(recID, store.Patch{Status: store.StatusSubmitting})
		submitTime = e.now()
		sig, ierr = e.deps.Ledger.Submit(ctx, tx)
		if ierr != nil {
			return errf(KindSubmission, "submit: %v", ierr)
		}
		res.Signature = sig.String()
		return e.awaitConfirmation(ctx, sig)
	})
	if runErr != nil {
		e.failFromRun(finish, botCfg, nonce, sig, runErr)
		return res
	}

	metrics.ConfirmSeconds.Observe(e.now().Sub(submitTime).Seconds())
	if err := e.deps.Guard.MarkUsed(botCfg.OwnerID, nonce); err != nil {
		e.log.Error().Err(err).Str("record", recID).Msg("mark nonce used failed")
	}

	postBalance, err := e.deps.Ledger.Balance(ctx, feePayer)
	if err != nil {
		// Confirmed on chain; a failed snapshot only degrades accounting.
		e.log.Warn().Err(err).Str("record", recID).Msg("post-balance snapshot failed")
		postBalance = preBalance
	}
	profit := int64(postBalance) - int64(preBalance)
	sb.AddSpend(gasFee)
	res.ProfitOrLoss = profit
	res.GasSpent = gasFee

	finish(store.StatusConfirmed, store.StatusConfirmed, "", "", store.Patch{
		TxSignature:  sig.String(),
		PreBalance:   &preBalance,
		PostBalance:  &postBalance,
		ProfitOrLoss: &profit,
		GasSpent:     &gasFee,
	})

	e.maybeDistribute(ctx, botCfg, recID, nonce, profit, signer)
	return res
}

func validateInput(botCfg *bot.Config, utx *txbuild.Unsigned, signer *wallet.Signer) error {
	switch {
	case botCfg == nil:
		return errors.New("nil bot config")
	case !botCfg.Runnable():
		return fmt.Errorf("bot %s is not runnable (active=%t paused=%t)", botCfg.ID, botCfg.IsActive, botCfg.IsPaused)
	case utx == nil:
		return errors.New("nil transaction")
	case signer == nil:
		return errors.New("nil signer")
	case signer.Wiped():
		return errors.New("signer already wiped")
	case !signer.PublicKey().Equals(utx.FeePayer()):
		return errors.New("signer does not match fee payer")
	}
	return nil
}

// awaitConfirmation polls the ledger until the signature lands, fails, or the
// bounded timeout elapses.
func (e *Engine) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	deadline := e.now().Add(e.cfg.ConfirmTimeout)
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()
	for {
		status, err := e.deps.Ledger.ConfirmationStatus(ctx, sig)
		if err != nil {
			e.log.Warn().Err(err).Str("sig", sig.String()).Msg("confirmation poll error")
		} else {
			switch status {
			case ledger.StatusConfirmed:
				return nil
			case ledger.StatusFailed:
				return errf(KindSubmission, "transaction failed on chain")
			}
		}
		if e.now().After(deadline) {
			return errf(KindConfirmTimeout, "no confirmation within %s", e.cfg.ConfirmTimeout)
		}
		select {
		case <-ctx.Done():
			return errf(KindConfirmTimeout, "context canceled while awaiting confirmation: %v", ctx.Err())
		case <-ticker.C:
		}
	}
}

// failFromRun maps a sandbox.Run failure onto the taxonomy and terminal state.
// A confirmation timeout leaves the stored record in SUBMITTING with its
// reservation extended: the transaction may still land, and Reconcile settles
// its true fate without risking a double submission.
func (e *Engine) failFromRun(finish func(store.Status, store.Status, Kind, string, store.Patch), botCfg *bot.Config, nonce string, sig solana.Signature, runErr error) {
	var engErr *Error
	switch {
	case errors.Is(runErr, sandbox.ErrPermissionDenied):
		finish(store.StatusFailed, store.StatusFailed, KindPermission, runErr.Error(), store.Patch{})
		return
	case errors.Is(runErr, sandbox.ErrQuotaExceeded):
		finish(store.StatusFailed, store.StatusFailed, KindQuota, runErr.Error(), store.Patch{})
		return
	case errors.As(runErr, &engErr) && engErr.Kind == KindConfirmTimeout:
		if err := e.deps.Guard.Extend(botCfg.OwnerID, nonce, reconcileTTL); err != nil {
			e.log.Error().Err(err).Msg("extend reservation failed")
		}
		finish(store.StatusSubmitting, store.StatusFailed, KindConfirmTimeout, runErr.Error(),
			store.Patch{TxSignature: sig.String()})
		return
	case errors.As(runErr, &engErr):
		finish(store.StatusFailed, store.StatusFailed, engErr.Kind, runErr.Error(), store.Patch{})
		return
	}
	finish(store.StatusFailed, store.StatusFailed, KindInternal, runErr.Error(), store.Patch{})
}

// maybeDistribute attempts the profit skim at most once. Failure is logged
// and audited but never changes the already-confirmed result.
func (e *Engine) maybeDistribute(ctx context.Context, botCfg *bot.Config, recID, nonce string, profit int64, signer *wallet.Signer) {
	if !e.cfg.DistributionEnabled || e.deps.Sender == nil || profit <= 0 {
		return
	}
	share := uint64(profit) * uint64(e.cfg.DistributionShareBps) / 10_000
	if share == 0 || e.cfg.DistributionRecipient.IsZero() {
		return
	}
	sig, err := e.deps.Sender.Distribute(ctx, share, signer, e.cfg.DistributionRecipient)
	if err != nil {
		metrics.DistributionsTotal.WithLabelValues("failed").Inc()
		e.log.Warn().Err(err).Str("record", recID).Uint64("share", share).Msg("profit distribution failed")
		e.deps.Audit.Append(audit.Entry{
			OwnerID:  botCfg.OwnerID,
			BotID:    botCfg.ID,
			RecordID: recID,
			Nonce:    nonce,
			Decision: audit.DecisionFailed,
			Reason:   fmt.Sprintf("distribution: %v", err),
			Ts:       e.now().UTC(),
		})
		return
	}
	metrics.DistributionsTotal.WithLabelValues("sent").Inc()
	e.deps.Audit.Append(audit.Entry{
		OwnerID:   botCfg.OwnerID,
		BotID:     botCfg.ID,
		RecordID:  recID,
		Nonce:     nonce,
		Decision:  audit.DecisionDistributed,
		Signature: sig.String(),
		Ts:        e.now().UTC(),
	})
}
