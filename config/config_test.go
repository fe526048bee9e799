package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig_Defaults(t *testing.T) {
	cfg, err := ReadConfig("does-not-exist", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, rpc.DevNet_RPC, cfg.Solana.RPCEndpoint)
	assert.Equal(t, DefaultProgramID, cfg.Solana.ProgramID)
	assert.Equal(t, 2*time.Minute, cfg.Solana.ConfirmTimeout)
	assert.Equal(t, time.Second, cfg.Solana.PollInterval)
	assert.Equal(t, int64(8080), cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
}

func TestReadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
server:
  port: 9090
  jwt_secret: file-secret
solana:
  rpc_endpoint: http://127.0.0.1:8899
  confirm_timeout: 30s
redis:
  host: redis
  port: "6380"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tipjar.yaml"), content, 0o600))

	t.Setenv("TIPJAR_SERVER_JWT_SECRET", "env-secret")

	cfg, err := ReadConfig("tipjar", dir)
	require.NoError(t, err)

	assert.Equal(t, int64(9090), cfg.Server.Port)
	assert.Equal(t, "env-secret", cfg.Server.JWTSecret)
	assert.Equal(t, "http://127.0.0.1:8899", cfg.Solana.RPCEndpoint)
	assert.Equal(t, 30*time.Second, cfg.Solana.ConfirmTimeout)
	assert.Equal(t, "redis:6380", cfg.RedisAddr())
}

func TestReadConfig_Malformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("server: [unterminated"), 0o600))

	_, err := ReadConfig("broken", dir)
	assert.Error(t, err)
}
