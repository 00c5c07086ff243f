// Package wallet owns signing material for exactly one execution at a time.
package wallet

import (
	"errors"
	"os"
	"sync"

	solana "github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
)

// EnvPrivateKey is the environment variable consulted by LoadFromEnv.
const EnvPrivateKey = "WALLET_PRIVATE_KEY"

var (
	// ErrWiped is returned when a signer is used after its key was zeroized.
	ErrWiped = errors.New("wallet: signer already wiped")
	// ErrMissingKey is returned when no private key can be located.
	ErrMissingKey = errors.New("wallet: " + EnvPrivateKey + " not set")
)

// Signer holds a private key that is exclusively owned by the execution call
// it is handed to. Wipe overwrites the secret bytes with zeros and must run on
// every exit path of that call.
type Signer struct {
	mu    sync.Mutex
	key   solana.PrivateKey
	pub   solana.PublicKey
	wiped bool
}

// NewSigner wraps an existing private key. The signer takes ownership of the
// underlying bytes; callers must not retain their own reference.
func NewSigner(key solana.PrivateKey) *Signer {
	return &Signer{key: key, pub: key.PublicKey()}
}

// Generate creates a signer backed by a fresh random keypair.
func Generate() *Signer {
	w := solana.NewWallet()
	return NewSigner(w.PrivateKey)
}

// FromBase58 decodes a base58-encoded private key into a signer.
func FromBase58(b58 string) (*Signer, error) {
	key, err := solana.PrivateKeyFromBase58(b58)
	if err != nil {
		return nil, err
	}
	return NewSigner(key), nil
}

// LoadFromEnv reads the private key from WALLET_PRIVATE_KEY, consulting a
// .env file first when one exists.
func LoadFromEnv() (*Signer, error) {
	_ = godotenv.Load() // best-effort
	b58 := os.Getenv(EnvPrivateKey)
	if b58 == "" {
		return nil, ErrMissingKey
	}
	return FromBase58(b58)
}

// PublicKey returns the signer's public key. Valid even after Wipe, since the
// public half is not sensitive.
func (s *Signer) PublicKey() solana.PublicKey { return s.pub }

// Verify reports whether sig is a valid signature over msg by pub. It needs
// no secret material, so it works against wiped signers and foreign keys
// alike.
func Verify(pub solana.PublicKey, msg []byte, sig solana.Signature) bool {
	return sig.Verify(pub, msg)
}

// Sign produces an ed25519 signature over msg. Fails once the key is wiped.
func (s *Signer) Sign(msg []byte) (solana.Signature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wiped {
		return solana.Signature{}, ErrWiped
	}
	return s.key.Sign(msg)
}

// SignTransaction signs tx wherever the signer's public key is required.
func (s *Signer) SignTransaction(tx *solana.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wiped {
		return ErrWiped
	}
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.pub) {
			return &s.key
		}
		return nil
	})
	return err
}

// Wipe overwrites the secret bytes with zeros. Idempotent.
func (s *Signer) Wipe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.key {
		s.key[i] = 0
	}
	s.wiped = true
}

// Wiped reports whether the secret material has been zeroized.
func (s *Signer) Wiped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wiped
}

// SecretLen exposes the secret key length so callers can verify zeroization
// without copying key material.
func (s *Signer) SecretLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.key)
}

// SecretAllZero reports whether every secret byte is zero.
func (s *Signer) SecretAllZero() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.key {
		if b != 0 {
			return false
		}
	}
	return true
}
