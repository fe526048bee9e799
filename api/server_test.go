package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vultisig/tipjar/config"
	"github.com/vultisig/tipjar/internal/solanatest"
	"github.com/vultisig/tipjar/internal/types"
	"github.com/vultisig/tipjar/service"
	"github.com/vultisig/tipjar/storage"
)

type receiptsDB struct {
	mu       sync.Mutex
	receipts []types.ReceiptRecord
}

func (d *receiptsDB) Close() error { return nil }

func (d *receiptsDB) InsertReceipt(_ context.Context, rec types.ReceiptRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.receipts = append(d.receipts, rec)
	return nil
}

func (d *receiptsDB) GetReceiptsByAuthority(_ context.Context, authority string, take int, skip int) ([]types.ReceiptRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []types.ReceiptRecord
	for _, r := range d.receipts {
		if r.Authority == authority {
			out = append(out, r)
		}
	}
	if skip >= len(out) {
		return nil, nil
	}
	out = out[skip:]
	if take < len(out) {
		out = out[:take]
	}
	return out, nil
}

// syncRecorder writes receipts straight into the ledger instead of going
// through the queue.
type syncRecorder struct {
	db *receiptsDB
}

func (r syncRecorder) Record(ctx context.Context, sessionID string, op types.OperationType, receipt *types.Receipt, opErr error) {
	_ = r.db.InsertReceipt(ctx, types.NewReceiptRecord(sessionID, op, receipt, opErr))
}

type testEnv struct {
	server  *Server
	e       *echo.Echo
	cluster *solanatest.Cluster
	db      *receiptsDB
	wallet  solana.PrivateKey
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	programID := solana.MustPublicKeyFromBase58(config.DefaultProgramID)
	cluster := solanatest.NewCluster(programID)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	client, err := service.NewVaultClient(cluster, programID, time.Second, time.Millisecond, logger)
	require.NoError(t, err)
	db := &receiptsDB{}
	shell := service.NewShell(client, storage.NewMemoryStorage(), syncRecorder{db: db}, logger)

	walletsDir := t.TempDir()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	content, err := json.Marshal(ints)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(walletsDir, "alice.json"), content, 0o600))
	cluster.Airdrop(key.PublicKey(), 2*types.LamportsPerSOL)

	s := NewServer(0, walletsDir, "test-secret", shell, client, db, nil, logger)
	return &testEnv{server: s, e: s.newEcho(), cluster: cluster, db: db, wallet: key}
}

func (env *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) connect(t *testing.T) types.ConnectResponse {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/session/connect", "", `{"wallet":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp types.ConnectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) types.ShellState {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var state types.ShellState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	return state
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/ping", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestConnect(t *testing.T) {
	env := newTestEnv(t)

	testCases := []struct {
		name   string
		body   string
		status int
	}{
		{name: "empty wallet", body: `{}`, status: http.StatusBadRequest},
		{name: "path traversal", body: `{"wallet":"../alice"}`, status: http.StatusBadRequest},
		{name: "unknown wallet", body: `{"wallet":"bob"}`, status: http.StatusNotFound},
		{name: "malformed body", body: `{`, status: http.StatusBadRequest},
		{name: "known wallet", body: `{"wallet":"alice"}`, status: http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/session/connect", "", tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}

	resp := env.connect(t)
	assert.Equal(t, env.wallet.PublicKey().String(), resp.PublicKey)
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.SessionID)
}

func TestShellRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/shell", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/shell/initialize", "garbage", "").Code)
}

func TestShellScenario(t *testing.T) {
	env := newTestEnv(t)
	resp := env.connect(t)
	authority := env.wallet.PublicKey().String()

	state := decodeState(t, env.do(t, http.MethodGet, "/shell", resp.Token, ""))
	assert.Equal(t, "0.01", state.Amount)
	assert.Empty(t, state.Status)

	state = decodeState(t, env.do(t, http.MethodPost, "/shell/initialize", resp.Token, ""))
	assert.True(t, strings.HasPrefix(state.Status, "Initialized vault: "), state.Status)

	rec := env.do(t, http.MethodGet, "/vault/"+authority, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var before types.VaultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &before))
	assert.True(t, before.Exists)
	assert.Equal(t, "Initialized vault: "+before.Address, state.Status)

	state = decodeState(t, env.do(t, http.MethodPost, "/shell/tip", resp.Token,
		`{"creator":"`+authority+`","amount":"0.1"}`))
	assert.Equal(t, "Tipped successfully!", state.Status)

	state = decodeState(t, env.do(t, http.MethodPost, "/shell/tip", resp.Token, `{"amount":"0"}`))
	assert.Contains(t, state.Status, "custom program error: 0x1770")

	state = decodeState(t, env.do(t, http.MethodPost, "/shell/withdraw", resp.Token, `{"amount":"0.05"}`))
	assert.Equal(t, "Withdrawn!", state.Status)

	rec = env.do(t, http.MethodGet, "/vault/"+authority, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var after types.VaultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	assert.Equal(t, types.Lamports(50_000_000), after.Balance-before.Balance)
	assert.Equal(t, types.Lamports(100_000_000), after.TotalTips)

	rec = env.do(t, http.MethodGet, "/vault/"+authority+"/history?take=10", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []types.ReceiptRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 4)
	assert.Equal(t, types.StatusRejected, history[2].Status)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/session/disconnect", resp.Token, "").Code)
	assert.Empty(t, env.server.sessions)
	state = decodeState(t, env.do(t, http.MethodGet, "/shell", resp.Token, ""))
	assert.Equal(t, *types.NewShellState(), state)
	state = decodeState(t, env.do(t, http.MethodPost, "/shell/withdraw", resp.Token, ""))
	assert.Equal(t, "Wallet not connected yet.", state.Status)
}

func TestExpiredSessionsAreEvicted(t *testing.T) {
	env := newTestEnv(t)
	start := time.Now()
	env.server.now = func() time.Time { return start }

	first := env.connect(t)
	_ = decodeState(t, env.do(t, http.MethodPost, "/shell/tip", first.Token, `{"creator":"someone"}`))
	require.NotNil(t, env.server.session(first.SessionID))

	env.server.now = func() time.Time { return start.Add(25 * time.Hour) }
	assert.Nil(t, env.server.session(first.SessionID))

	second := env.connect(t)
	assert.Len(t, env.server.sessions, 1)
	assert.Contains(t, env.server.sessions, second.SessionID)

	state, err := env.server.shell.State(context.Background(), first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, *types.NewShellState(), *state)
}

func TestGetVault_Invalid(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/vault/not-a-key", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/vault/not-a-key/history", "", "").Code)

	authority := env.wallet.PublicKey().String()
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/vault/"+authority+"/history?take=-1", "", "").Code)

	rec := env.do(t, http.MethodGet, "/vault/"+authority, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp types.VaultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Exists)
	assert.NotEmpty(t, resp.Address)
}

func TestGetVaultHistory_NoDatabase(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	s := NewServer(0, t.TempDir(), "secret", nil, nil, nil, nil, logger)
	req := httptest.NewRequest(http.MethodGet, "/vault/"+solana.SystemProgramID.String()+"/history", nil)
	rec := httptest.NewRecorder()
	s.newEcho().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
