// Package wallet holds the signing identity of a shell and the session that
// attaches it.
package wallet

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var ErrNotConnected = errors.New("wallet not connected")

// Wallet signs transactions with a single ed25519 key.
type Wallet struct {
	key solana.PrivateKey
	pub solana.PublicKey
}

func New(key solana.PrivateKey) (*Wallet, error) {
	if len(key) != 64 {
		return nil, fmt.Errorf("invalid private key length %d", len(key))
	}
	return &Wallet{key: key, pub: key.PublicKey()}, nil
}

// LoadKeypair reads a solana-keygen JSON keypair file.
func LoadKeypair(path string) (*Wallet, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("fail to load keypair %s, err: %w", path, err)
	}
	return New(key)
}

func NewRandom() (*Wallet, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("fail to generate key, err: %w", err)
	}
	return New(key)
}

func (w *Wallet) PublicKey() solana.PublicKey {
	return w.pub
}

// SignTransaction adds the wallet's signature to tx. Every other required
// signer is left unsigned and makes the call fail.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.pub) {
			return &w.key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("fail to sign transaction, err: %w", err)
	}
	return nil
}
