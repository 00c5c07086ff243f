package txbuild

import (
	"time"

	solana "github.com/gagliardetto/solana-go"
)

// Unsigned is a fully assembled, not-yet-signed transaction. It is immutable
// after Build; the engine only signs and serializes it.
type Unsigned struct {
	feePayer    solana.PublicKey
	insts       []solana.Instruction
	blockhash   solana.Hash
	unitLimit   uint32
	priorityFee uint64
	clamped     bool
	declaredFee uint64
	createdAt   time.Time
}

// FeePayer returns the account paying for this transaction.
func (u *Unsigned) FeePayer() solana.PublicKey { return u.feePayer }

// Instructions returns a copy of the full instruction list, budget
// directives included.
func (u *Unsigned) Instructions() []solana.Instruction {
	out := make([]solana.Instruction, len(u.insts))
	copy(out, u.insts)
	return out
}

// Blockhash returns the blockhash attached at build time.
func (u *Unsigned) Blockhash() solana.Hash { return u.blockhash }

// PriorityFee returns the effective (post-clamp) fee in micro-lamports per
// compute unit.
func (u *Unsigned) PriorityFee() uint64 { return u.priorityFee }

// ComputeUnitLimit returns the compute budget attached to the transaction,
// zero when none was requested.
func (u *Unsigned) ComputeUnitLimit() uint32 { return u.unitLimit }

// PriorityFeeClamped reports whether the requested fee exceeded the cap and
// was reduced to it.
func (u *Unsigned) PriorityFeeClamped() bool { return u.clamped }

// DeclaredFee is the worst-case lamport cost used for spend-cap accounting.
func (u *Unsigned) DeclaredFee() uint64 { return u.declaredFee }

// CreatedAt is the build timestamp, used for replay freshness checks.
func (u *Unsigned) CreatedAt() time.Time { return u.createdAt }

// Transaction compiles the ledger transaction ready for signing.
func (u *Unsigned) Transaction() (*solana.Transaction, error) {
	return solana.NewTransaction(u.insts, u.blockhash, solana.TransactionPayer(u.feePayer))
}

// EstimateSize returns the serialized size of the signed transaction in bytes.
func EstimateSize(tx *solana.Transaction) (int, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return 0, err
	}
	return len(raw), nil
}
