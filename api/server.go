package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/tipjar/internal/types"
	"github.com/vultisig/tipjar/internal/wallet"
	"github.com/vultisig/tipjar/service"
	"github.com/vultisig/tipjar/storage"
)

const (
	defaultHistoryTake = 20
	maxHistoryTake     = 100
)

type Server struct {
	port        int64
	walletsDir  string
	sdClient    *statsd.Client
	logger      *logrus.Logger
	db          storage.DatabaseStorage
	vault       service.VaultReader
	shell       *service.Shell
	authService *service.AuthService

	mu       sync.RWMutex
	sessions map[string]sessionEntry
	now      func() time.Time
}

// sessionEntry lives as long as the token issued for it.
type sessionEntry struct {
	session   *wallet.Session
	expiresAt time.Time
}

// NewServer returns a new server. db may be nil, in which case the history
// endpoint reports itself unavailable.
func NewServer(port int64,
	walletsDir string,
	jwtSecret string,
	shell *service.Shell,
	vault service.VaultReader,
	db storage.DatabaseStorage,
	sdClient *statsd.Client,
	logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.WithField("service", "api").Logger
	}
	return &Server{
		port:        port,
		walletsDir:  walletsDir,
		sdClient:    sdClient,
		logger:      logger,
		db:          db,
		vault:       vault,
		shell:       shell,
		authService: service.NewAuthService(jwtSecret),
		sessions:    make(map[string]sessionEntry),
		now:         time.Now,
	}
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(log.INFO)
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(s.statsdMiddleware)
	e.Use(middleware.CORS())
	limiterStore := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{Rate: 5, Burst: 30, ExpiresIn: 5 * time.Minute},
	)
	e.Use(middleware.RateLimiter(limiterStore))

	e.GET("/ping", s.Ping)

	sessionGroup := e.Group("/session")
	sessionGroup.POST("/connect", s.Connect)
	sessionGroup.POST("/disconnect", s.Disconnect, s.AuthMiddleware)

	shellGroup := e.Group("/shell", s.AuthMiddleware)
	shellGroup.GET("", s.GetShell)
	shellGroup.POST("/initialize", s.PressInitialize)
	shellGroup.POST("/tip", s.PressTip)
	shellGroup.POST("/withdraw", s.PressWithdraw)

	vaultGroup := e.Group("/vault")
	vaultGroup.GET("/:authority", s.GetVault)
	vaultGroup.GET("/:authority/history", s.GetVaultHistory)
	return e
}

func (s *Server) StartServer() error {
	return s.newEcho().Start(fmt.Sprintf(":%d", s.port))
}

func (s *Server) Ping(c echo.Context) error {
	return c.String(http.StatusOK, "Tip jar is running")
}

func (s *Server) session(id string) *wallet.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[id]
	if !ok || !s.now().Before(entry.expiresAt) {
		return nil
	}
	return entry.session
}

// evictExpired drops sessions whose tokens can no longer be used, together
// with their view state.
func (s *Server) evictExpired(ctx context.Context) {
	now := s.now()
	var expired []string
	s.mu.Lock()
	for id, entry := range s.sessions {
		if !now.Before(entry.expiresAt) {
			entry.session.Disconnect()
			delete(s.sessions, id)
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		if err := s.shell.Forget(ctx, id); err != nil {
			s.logger.WithError(err).WithField("session", id).Warn("fail to forget expired session")
		}
	}
	if len(expired) > 0 {
		s.logger.WithField("count", len(expired)).Info("expired sessions evicted")
	}
}


// Connect loads a server-side keypair and opens a session for it.
func (s *Server) Connect(c echo.Context) error {
	var req types.ConnectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "fail to parse request"})
	}
	if err := req.IsValid(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	path := filepath.Join(s.walletsDir, req.Wallet+".json")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "wallet not found"})
	}
	w, err := wallet.LoadKeypair(path)
	if err != nil {
		return fmt.Errorf("fail to load wallet, err: %w", err)
	}

	s.evictExpired(c.Request().Context())

	session := wallet.Connect(w)
	expiresAt := s.now().Add(s.authService.TokenLifetime())
	token, err := s.authService.GenerateToken(session.ID())
	if err != nil {
		return fmt.Errorf("fail to generate token, err: %w", err)
	}
	if _, err := s.shell.Reset(c.Request().Context(), session.ID()); err != nil {
		return fmt.Errorf("fail to reset shell, err: %w", err)
	}

	s.mu.Lock()
	s.sessions[session.ID()] = sessionEntry{session: session, expiresAt: expiresAt}
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"session": session.ID(),
		"wallet":  w.PublicKey().String(),
	}).Info("wallet connected")

	return c.JSON(http.StatusOK, types.ConnectResponse{
		SessionID: session.ID(),
		Token:     token,
		PublicKey: w.PublicKey().String(),
	})
}

func (s *Server) Disconnect(c echo.Context) error {
	viewID := viewIDFromContext(c)
	s.mu.Lock()
	if entry, ok := s.sessions[viewID]; ok {
		entry.session.Disconnect()
		delete(s.sessions, viewID)
	}
	s.mu.Unlock()
	if err := s.shell.Forget(c.Request().Context(), viewID); err != nil {
		s.logger.WithError(err).WithField("session", viewID).Warn("fail to forget session view")
	}
	s.logger.WithField("session", viewID).Info("wallet disconnected")
	return c.NoContent(http.StatusOK)
}

func (s *Server) GetShell(c echo.Context) error {
	state, err := s.shell.State(c.Request().Context(), viewIDFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, state)
}

func (s *Server) PressInitialize(c echo.Context) error {
	viewID := viewIDFromContext(c)
	state, err := s.shell.PressInitialize(c.Request().Context(), viewID, s.session(viewID))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, state)
}

func (s *Server) PressTip(c echo.Context) error {
	var req types.TipRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "fail to parse request"})
	}
	ctx := c.Request().Context()
	viewID := viewIDFromContext(c)
	if err := s.applyInputs(ctx, viewID, req.Creator, req.Amount); err != nil {
		return err
	}
	state, err := s.shell.PressTip(ctx, viewID, s.session(viewID))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, state)
}

func (s *Server) PressWithdraw(c echo.Context) error {
	var req types.WithdrawRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "fail to parse request"})
	}
	ctx := c.Request().Context()
	viewID := viewIDFromContext(c)
	if err := s.applyInputs(ctx, viewID, nil, req.Amount); err != nil {
		return err
	}
	state, err := s.shell.PressWithdraw(ctx, viewID, s.session(viewID))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, state)
}

func (s *Server) applyInputs(ctx context.Context, viewID string, creator, amount *string) error {
	if creator != nil {
		if _, err := s.shell.SetCreator(ctx, viewID, *creator); err != nil {
			return err
		}
	}
	if amount != nil {
		if _, err := s.shell.SetAmount(ctx, viewID, *amount); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) GetVault(c echo.Context) error {
	authority, err := solana.PublicKeyFromBase58(c.Param("authority"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid authority"})
	}
	state, err := s.vault.GetVault(c.Request().Context(), authority)
	if err != nil {
		s.logger.WithError(err).WithField("authority", authority.String()).Error("fail to get vault")
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, types.VaultResponse{
		Address:   state.Address.String(),
		Authority: state.Authority.String(),
		Bump:      state.Bump,
		Exists:    state.Exists,
		Balance:   state.Lamports,
		TotalTips: state.TotalTips,
	})
}

func (s *Server) GetVaultHistory(c echo.Context) error {
	if s.db == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "receipt ledger is not configured"})
	}
	authority, err := solana.PublicKeyFromBase58(c.Param("authority"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid authority"})
	}
	take, err := queryInt(c, "take", defaultHistoryTake)
	if err != nil || take <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid take"})
	}
	if take > maxHistoryTake {
		take = maxHistoryTake
	}
	skip, err := queryInt(c, "skip", 0)
	if err != nil || skip < 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid skip"})
	}

	receipts, err := s.db.GetReceiptsByAuthority(c.Request().Context(), authority.String(), take, skip)
	if err != nil {
		return fmt.Errorf("fail to get receipts, err: %w", err)
	}
	if receipts == nil {
		receipts = []types.ReceiptRecord{}
	}
	return c.JSON(http.StatusOK, receipts)
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
