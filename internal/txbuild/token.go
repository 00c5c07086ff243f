package txbuild

import (
	"math"

	solana "github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"
)

// AddTokenTransfer appends a checked SPL token transfer from one token
// account to another. The mint and decimals travel with the instruction so
// the token program rejects transfers against the wrong mint or scale.
func (b *Builder) AddTokenTransfer(source, mint, dest, owner solana.PublicKey, amount uint64, decimals uint8) *Builder {
	return b.AddInstruction(
		token.NewTransferCheckedInstruction(amount, decimals, source, mint, dest, owner, nil).Build(),
	)
}

// AddCreateTokenAccount appends creation of the owner's associated token
// account for mint, paid for by payer. Safe to include ahead of a transfer to
// a wallet that may not hold the token yet.
func (b *Builder) AddCreateTokenAccount(payer, owner, mint solana.PublicKey) *Builder {
	return b.AddInstruction(
		associatedtokenaccount.NewCreateInstruction(payer, owner, mint).Build(),
	)
}

// AssociatedTokenAddress derives the canonical token account for an owner and
// mint.
func AssociatedTokenAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	return addr, err
}

// TokenAmount converts a UI amount into the token's smallest unit, truncating
// any fraction below the mint's precision.
func TokenAmount(ui float64, decimals uint8) uint64 {
	return uint64(ui * math.Pow10(int(decimals)))
}

// UIAmount converts the smallest unit back into a UI amount.
func UIAmount(amount uint64, decimals uint8) float64 {
	return float64(amount) / math.Pow10(int(decimals))
}
