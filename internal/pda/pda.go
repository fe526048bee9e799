// Package pda derives the per-authority vault address of the tip_jar program.
package pda

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// VaultSeed is the literal tag prefixed to every vault derivation.
var VaultSeed = []byte("vault")

func vaultSeeds(authority solana.PublicKey) [][]byte {
	return [][]byte{VaultSeed, authority.Bytes()}
}

// FindVaultAddress returns the vault address of authority together with the
// bump that moved it off the ed25519 curve.
func FindVaultAddress(authority, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(vaultSeeds(authority), programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("fail to derive vault address for %s, err: %w", authority, err)
	}
	return addr, bump, nil
}

// VaultAddress is FindVaultAddress without the bump.
func VaultAddress(authority, programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := FindVaultAddress(authority, programID)
	return addr, err
}

// CreateVaultAddress recomputes the vault address for a known bump. It fails
// when the bump does not produce an off-curve address.
func CreateVaultAddress(authority, programID solana.PublicKey, bump uint8) (solana.PublicKey, error) {
	seeds := append(vaultSeeds(authority), []byte{bump})
	return solana.CreateProgramAddress(seeds, programID)
}
