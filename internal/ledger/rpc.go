package ledger

import (
	"context"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPC implements Client against a Solana JSON-RPC endpoint.
type RPC struct {
	client *rpc.Client
	commit rpc.CommitmentType
}

// NewRPC dials endpoint with the given commitment level
// (processed|confirmed|finalized; defaults to confirmed).
func NewRPC(endpoint, commitment string) *RPC {
	c := rpc.CommitmentConfirmed
	switch commitment {
	case "processed":
		c = rpc.CommitmentProcessed
	case "finalized":
		c = rpc.CommitmentFinalized
	}
	return &RPC{client: rpc.New(endpoint), commit: c}
}

// Balance returns the lamport balance of addr at the configured commitment.
func (r *RPC) Balance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	out, err := r.client.GetBalance(ctx, addr, r.commit)
	if err != nil {
		return 0, fmt.Errorf("ledger: get balance: %w", err)
	}
	return out.Value, nil
}

// Submit sends the signed transaction with preflight enabled.
func (r *RPC) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := r.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: r.commit,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("ledger: send transaction: %w", err)
	}
	return sig, nil
}

// ConfirmationStatus maps the signature status query onto the engine's
// pending/confirmed/failed view.
func (r *RPC) ConfirmationStatus(ctx context.Context, sig solana.Signature) (TxStatus, error) {
	out, err := r.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return StatusPending, fmt.Errorf("ledger: signature status: %w", err)
	}
	if len(out.Value) == 0 || out.Value[0] == nil {
		return StatusPending, nil
	}
	st := out.Value[0]
	if st.Err != nil {
		return StatusFailed, nil
	}
	switch st.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return StatusConfirmed, nil
	}
	return StatusPending, nil
}

// Simulate dry-runs the transaction against current state.
func (r *RPC) Simulate(ctx context.Context, tx *solana.Transaction) (*SimResult, error) {
	out, err := r.client.SimulateTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("ledger: simulate: %w", err)
	}
	res := &SimResult{OK: out.Value.Err == nil, Logs: out.Value.Logs}
	if out.Value.Err != nil {
		res.Err = fmt.Sprintf("%v", out.Value.Err)
	}
	if out.Value.UnitsConsumed != nil {
		res.UnitsConsumed = *out.Value.UnitsConsumed
	}
	return res, nil
}

// LatestBlockhash fetches a fresh blockhash; never cached, a stale one makes
// submission fail outright.
func (r *RPC) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := r.client.GetLatestBlockhash(ctx, r.commit)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("ledger: latest blockhash: %w", err)
	}
	return out.Value.Blockhash, nil
}

// RequestAirdrop funds addr on dev and test clusters.
func (r *RPC) RequestAirdrop(ctx context.Context, addr solana.PublicKey, lamports uint64) (solana.Signature, error) {
	sig, err := r.client.RequestAirdrop(ctx, addr, lamports, r.commit)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("ledger: airdrop: %w", err)
	}
	return sig, nil
}
