// Package ledger abstracts the chain RPC surface the engine depends on.
package ledger

import (
	"context"

	solana "github.com/gagliardetto/solana-go"
)

// TxStatus is the engine-facing view of a submitted transaction's fate.
type TxStatus string

const (
	StatusPending   TxStatus = "pending"
	StatusConfirmed TxStatus = "confirmed"
	StatusFailed    TxStatus = "failed"
)

// SimResult reports the outcome of a dry-run without submission.
type SimResult struct {
	OK            bool
	Logs          []string
	Err           string
	UnitsConsumed uint64
}

// Client is the RPC surface the engine consumes. Implementations must be safe
// for concurrent use.
type Client interface {
	// Balance returns the lamport balance of an account.
	Balance(ctx context.Context, addr solana.PublicKey) (uint64, error)
	// Submit sends a signed transaction and returns its signature.
	Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	// ConfirmationStatus reports whether a submitted signature has landed.
	ConfirmationStatus(ctx context.Context, sig solana.Signature) (TxStatus, error)
	// Simulate dry-runs a signed transaction.
	Simulate(ctx context.Context, tx *solana.Transaction) (*SimResult, error)
	// LatestBlockhash fetches a fresh blockhash for transaction assembly.
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
}
