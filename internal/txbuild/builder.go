// Package txbuild assembles unsigned ledger transactions from opaque
// instruction lists plus compute-budget and priority-fee directives.
package txbuild

import (
	"context"
	"errors"
	"fmt"
	"time"

	solana "github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
)

const (
	// MaxPriorityFee is the hard cap on the priority fee, in micro-lamports
	// per compute unit. Requests above it are clamped, never rejected.
	MaxPriorityFee uint64 = 10_000_000

	// DefaultComputeUnits is used when a compute budget is requested without
	// an explicit unit limit.
	DefaultComputeUnits uint32 = 200_000

	// baseFeeLamports is the flat signature fee charged per transaction.
	baseFeeLamports uint64 = 5_000
)

var (
	ErrNoInstructions = errors.New("txbuild: transaction has no instructions")
	ErrNoFeePayer     = errors.New("txbuild: fee payer not set")
)

// BlockhashProvider supplies a fresh blockhash at build time. A stale
// blockhash guarantees submission failure, so Build never caches one.
type BlockhashProvider interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
}

// Builder accumulates instructions and fee directives for one transaction.
// Builders are not safe for concurrent use.
type Builder struct {
	feePayer     solana.PublicKey
	instructions []solana.Instruction
	unitLimit    uint32
	priorityFee  uint64 // micro-lamports per compute unit
	hasBudget    bool
	hasPriority  bool
	clamped      bool
}

// New returns a builder whose transaction will be paid for by feePayer.
func New(feePayer solana.PublicKey) *Builder {
	return &Builder{feePayer: feePayer}
}

// SetFeePayer replaces the fee payer.
func (b *Builder) SetFeePayer(payer solana.PublicKey) *Builder {
	b.feePayer = payer
	return b
}

// AddInstruction appends a single instruction.
func (b *Builder) AddInstruction(ix solana.Instruction) *Builder {
	b.instructions = append(b.instructions, ix)
	return b
}

// AddInstructions appends instructions in order.
func (b *Builder) AddInstructions(ixs ...solana.Instruction) *Builder {
	b.instructions = append(b.instructions, ixs...)
	return b
}

// AddTransfer appends a native transfer of lamports from one account to another.
func (b *Builder) AddTransfer(from, to solana.PublicKey, lamports uint64) *Builder {
	return b.AddInstruction(system.NewTransferInstruction(lamports, from, to).Build())
}

// AddComputeBudget requests a compute-unit limit together with a priority
// fee. The fee is subject to the same clamp as AddPriorityFee.
func (b *Builder) AddComputeBudget(units uint32, microLamports uint64) *Builder {
	if units == 0 {
		units = DefaultComputeUnits
	}
	b.unitLimit = units
	b.hasBudget = true
	return b.AddPriorityFee(microLamports)
}

// AddPriorityFee sets the priority fee in micro-lamports per compute unit.
// Values above MaxPriorityFee are silently clamped to the cap; Clamped and
// the built transaction both expose whether clamping happened.
func (b *Builder) AddPriorityFee(microLamports uint64) *Builder {
	if microLamports > MaxPriorityFee {
		microLamports = MaxPriorityFee
		b.clamped = true
	}
	b.priorityFee = microLamports
	b.hasPriority = true
	return b
}

// Clamped reports whether any requested priority fee exceeded the cap.
func (b *Builder) Clamped() bool { return b.clamped }

// InstructionCount returns the number of caller instructions added so far,
// excluding budget directives synthesized at build time.
func (b *Builder) InstructionCount() int { return len(b.instructions) }

// Reset clears instructions and fee directives, keeping the fee payer.
func (b *Builder) Reset() *Builder {
	b.instructions = nil
	b.unitLimit = 0
	b.priorityFee = 0
	b.hasBudget = false
	b.hasPriority = false
	b.clamped = false
	return b
}

// Validate rejects transactions that could never be accepted by the ledger:
// empty instruction lists, an unset fee payer, or instructions missing a
// program identity or account list.
func (b *Builder) Validate() error {
	if len(b.instructions) == 0 {
		return ErrNoInstructions
	}
	if b.feePayer.IsZero() {
		return ErrNoFeePayer
	}
	for i, ix := range b.instructions {
		if ix.ProgramID().IsZero() {
			return fmt.Errorf("txbuild: instruction %d has no program id", i)
		}
		if len(ix.Accounts()) == 0 {
			return fmt.Errorf("txbuild: instruction %d has no accounts", i)
		}
	}
	return nil
}

// Build validates the builder, fetches a fresh blockhash, and produces the
// immutable unsigned transaction. Budget directives are prepended so they
// execute before any caller instruction.
func (b *Builder) Build(ctx context.Context, bh BlockhashProvider) (*Unsigned, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	blockhash, err := bh.LatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("txbuild: fetch blockhash: %w", err)
	}

	units := b.unitLimit
	if b.hasPriority && !b.hasBudget {
		units = DefaultComputeUnits
	}

	ixs := make([]solana.Instruction, 0, len(b.instructions)+2)
	if b.hasBudget || b.hasPriority {
		ixs = append(ixs, computebudget.NewSetComputeUnitLimitInstruction(units).Build())
	}
	if b.hasPriority {
		ixs = append(ixs, computebudget.NewSetComputeUnitPriceInstruction(b.priorityFee).Build())
	}
	ixs = append(ixs, b.instructions...)

	return &Unsigned{
		feePayer:    b.feePayer,
		insts:       ixs,
		blockhash:   blockhash,
		unitLimit:   units,
		priorityFee: b.priorityFee,
		clamped:     b.clamped,
		declaredFee: declaredFee(units, b.priorityFee, b.hasPriority),
		createdAt:   time.Now().UTC(),
	}, nil
}

// declaredFee is the worst-case fee the transaction can spend: the flat
// signature fee plus the full priority budget.
func declaredFee(units uint32, priceMicro uint64, hasPriority bool) uint64 {
	fee := baseFeeLamports
	if hasPriority {
		fee += uint64(units) * priceMicro / 1_000_000
	}
	return fee
}
