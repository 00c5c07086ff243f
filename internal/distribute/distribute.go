// Package distribute skims a share of realized profit to a designated
// recipient. Distribution is best-effort: it is attempted at most once per
// confirmed execution and its failure never invalidates the trade.
package distribute

import (
	"context"
	"errors"
	"fmt"

	solana "github.com/gagliardetto/solana-go"

	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/ledger"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/txbuild"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/wallet"
)

// ErrZeroAmount is returned when there is nothing to distribute.
var ErrZeroAmount = errors.New("distribute: amount is zero")

// Sender transfers a profit share. Implementations must not retry
// internally; at-most-once is part of the contract.
type Sender interface {
	Distribute(ctx context.Context, lamports uint64, signer *wallet.Signer, recipient solana.PublicKey) (solana.Signature, error)
}

// SOLSender sends the share as a native transfer through the ledger client.
type SOLSender struct {
	client ledger.Client
}

// NewSOLSender wraps a ledger client.
func NewSOLSender(client ledger.Client) *SOLSender {
	return &SOLSender{client: client}
}

// Distribute builds, signs, and submits a single transfer of lamports from
// the signer's account to recipient. No confirmation wait: the caller's trade
// is already final and this transfer is fire-and-forget by contract.
func (s *SOLSender) Distribute(ctx context.Context, lamports uint64, signer *wallet.Signer, recipient solana.PublicKey) (solana.Signature, error) {
	if lamports == 0 {
		return solana.Signature{}, ErrZeroAmount
	}
	utx, err := txbuild.New(signer.PublicKey()).
		AddTransfer(signer.PublicKey(), recipient, lamports).
		Build(ctx, s.client)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("distribute: build: %w", err)
	}
	tx, err := utx.Transaction()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("distribute: compile: %w", err)
	}
	if err := signer.SignTransaction(tx); err != nil {
		return solana.Signature{}, fmt.Errorf("distribute: sign: %w", err)
	}
	sig, err := s.client.Submit(ctx, tx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("distribute: submit: %w", err)
	}
	return sig, nil
}
