package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vultisig/tipjar/config"
	"github.com/vultisig/tipjar/internal/pda"
	"github.com/vultisig/tipjar/internal/solanatest"
	"github.com/vultisig/tipjar/internal/types"
	"github.com/vultisig/tipjar/service"
	"github.com/vultisig/tipjar/storage"
)

func newTestApp(t *testing.T) (*App, *solanatest.Cluster, string, solana.PublicKey) {
	t.Helper()
	programID := solana.MustPublicKeyFromBase58(config.DefaultProgramID)
	cluster := solanatest.NewCluster(programID)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	client, err := service.NewVaultClient(cluster, programID, time.Second, time.Millisecond, logger)
	require.NoError(t, err)
	shell := service.NewShell(client, storage.NewMemoryStorage(), nil, logger)

	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	content, err := json.Marshal(ints)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, content, 0o600))
	cluster.Airdrop(key.PublicKey(), 2*types.LamportsPerSOL)

	return NewApp(shell, client, logger), cluster, path, key.PublicKey()
}

func TestApp_Session(t *testing.T) {
	out := silence(t)
	app, _, path, pub := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, app.Initialize(ctx))
	assert.Equal(t, "Wallet not connected yet.", (*out)[len(*out)-1])

	assert.Error(t, app.Connect(ctx, ""))
	assert.Error(t, app.Connect(ctx, filepath.Join(t.TempDir(), "missing.json")))
	assert.False(t, app.connected())

	require.NoError(t, app.Connect(ctx, path))
	assert.True(t, app.connected())
	assert.Equal(t, "Connected: "+pub.String(), (*out)[len(*out)-1])

	require.NoError(t, app.Disconnect(ctx))
	assert.False(t, app.connected())
	assert.Error(t, app.Vault(ctx, ""))
}

func TestApp_Scenario(t *testing.T) {
	out := silence(t)
	app, _, path, pub := newTestApp(t)
	ctx := context.Background()
	last := func() string { return (*out)[len(*out)-1] }

	require.NoError(t, app.Connect(ctx, path))

	require.NoError(t, app.Initialize(ctx))
	vault, err := pda.VaultAddress(pub, solana.MustPublicKeyFromBase58(config.DefaultProgramID))
	require.NoError(t, err)
	assert.Equal(t, "Initialized vault: "+vault.String(), last())

	require.NoError(t, app.SetCreator(ctx, pub.String()))
	require.NoError(t, app.SetAmount(ctx, "0.1"))
	require.NoError(t, app.Tip(ctx))
	assert.Equal(t, "Tipped successfully!", last())

	require.NoError(t, app.SetAmount(ctx, "0.05"))
	require.NoError(t, app.Withdraw(ctx))
	assert.Equal(t, "Withdrawn!", last())

	require.NoError(t, app.Vault(ctx, ""))
	assert.Contains(t, last(), "total tips: 0.1 SOL")

	require.NoError(t, app.Status(ctx))
	assert.Contains(t, last(), "status:  Withdrawn!")

	other, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	require.NoError(t, app.Vault(ctx, other.PublicKey().String()))
	assert.Contains(t, last(), "is not initialized")

	assert.Error(t, app.Vault(ctx, "not-a-key"))
}
