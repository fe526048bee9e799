package pda

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var programID = solana.MustPublicKeyFromBase58("HGbtQGMTCfXsAB9HPo26EoGYCp6HVvsgo5HWd1vJT3Bm")

func newAuthority(t *testing.T) solana.PublicKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key.PublicKey()
}

func TestFindVaultAddress_Deterministic(t *testing.T) {
	authority := newAuthority(t)

	first, bump1, err := FindVaultAddress(authority, programID)
	require.NoError(t, err)
	second, bump2, err := FindVaultAddress(authority, programID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, bump1, bump2)

	addr, err := VaultAddress(authority, programID)
	require.NoError(t, err)
	assert.Equal(t, first, addr)
}

func TestFindVaultAddress_DistinctAuthorities(t *testing.T) {
	a, err := VaultAddress(newAuthority(t), programID)
	require.NoError(t, err)
	b, err := VaultAddress(newAuthority(t), programID)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestFindVaultAddress_DependsOnProgram(t *testing.T) {
	authority := newAuthority(t)
	a, err := VaultAddress(authority, programID)
	require.NoError(t, err)
	b, err := VaultAddress(authority, solana.SystemProgramID)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCreateVaultAddress_MatchesBump(t *testing.T) {
	authority := newAuthority(t)
	addr, bump, err := FindVaultAddress(authority, programID)
	require.NoError(t, err)

	recreated, err := CreateVaultAddress(authority, programID, bump)
	require.NoError(t, err)
	assert.Equal(t, addr, recreated)
}
