package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/tipjar/internal/types"
	"github.com/vultisig/tipjar/internal/wallet"
)

const (
	StatusInitializing = "Initializing..."
	StatusTipping      = "Sending tip..."
	StatusWithdrawing  = "Withdrawing..."
	StatusTipped       = "Tipped successfully!"
	StatusWithdrawn    = "Withdrawn!"
	statusInitialized  = "Initialized vault: %s"
)

// StateStore keeps the view state of each shell.
type StateStore interface {
	GetShellState(ctx context.Context, viewID string) (*types.ShellState, error)
	SetShellState(ctx context.Context, viewID string, state *types.ShellState) error
	DeleteShellState(ctx context.Context, viewID string) error
}

// Recorder is told about every operation a shell ran, successful or not.
type Recorder interface {
	Record(ctx context.Context, sessionID string, op types.OperationType, receipt *types.Receipt, opErr error)
}

// VaultOperator runs the three vault operations.
type VaultOperator interface {
	Initialize(ctx context.Context, signer Signer) (*types.Receipt, error)
	Tip(ctx context.Context, signer Signer, creator solana.PublicKey, amount types.Lamports) (*types.Receipt, error)
	Withdraw(ctx context.Context, signer Signer, amount types.Lamports) (*types.Receipt, error)
}

// Shell turns button presses into vault operations and keeps the single
// status line up to date. It never retries and never blocks a press because
// another one is in flight.
type Shell struct {
	vault    VaultOperator
	store    StateStore
	recorder Recorder
	logger   *logrus.Logger
	// mu serialises read-modify-write of view state, not operations.
	mu sync.Mutex
}

func NewShell(vault VaultOperator, store StateStore, recorder Recorder, logger *logrus.Logger) *Shell {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Shell{
		vault:    vault,
		store:    store,
		recorder: recorder,
		logger:   logger,
	}
}

func (s *Shell) State(ctx context.Context, viewID string) (*types.ShellState, error) {
	state, err := s.store.GetShellState(ctx, viewID)
	if err != nil {
		return nil, fmt.Errorf("fail to load shell state, err: %w", err)
	}
	return state, nil
}

func (s *Shell) update(ctx context.Context, viewID string, fn func(state *types.ShellState)) (*types.ShellState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.State(ctx, viewID)
	if err != nil {
		return nil, err
	}
	fn(state)
	if err := s.store.SetShellState(ctx, viewID, state); err != nil {
		return nil, fmt.Errorf("fail to save shell state, err: %w", err)
	}
	return state, nil
}

func (s *Shell) setStatus(ctx context.Context, viewID, status string) (*types.ShellState, error) {
	return s.update(ctx, viewID, func(state *types.ShellState) {
		state.Status = status
	})
}

func (s *Shell) SetCreator(ctx context.Context, viewID, creator string) (*types.ShellState, error) {
	return s.update(ctx, viewID, func(state *types.ShellState) {
		state.Creator = creator
	})
}

func (s *Shell) SetAmount(ctx context.Context, viewID, amount string) (*types.ShellState, error) {
	return s.update(ctx, viewID, func(state *types.ShellState) {
		state.Amount = amount
	})
}

// press runs one operation for the session's wallet. The returned error is
// only about view state; the operation's outcome is in the status line.
func (s *Shell) press(ctx context.Context, viewID string, session *wallet.Session, op types.OperationType,
	inFlight string, run func(signer Signer, state *types.ShellState) (*types.Receipt, error), success func(*types.Receipt) string) (*types.ShellState, error) {
	w, err := session.Wallet()
	if err != nil {
		return s.setStatus(ctx, viewID, types.NotConnectedMessage)
	}
	state, err := s.setStatus(ctx, viewID, inFlight)
	if err != nil {
		return nil, err
	}

	logger := s.logger.WithFields(logrus.Fields{
		"view":      viewID,
		"operation": op,
		"wallet":    w.PublicKey().String(),
	})
	receipt, opErr := run(w, state)
	if receipt == nil {
		// partial receipt so rejected operations are still attributed
		receipt = &types.Receipt{
			Operation: op,
			Authority: w.PublicKey().String(),
			Signer:    w.PublicKey().String(),
		}
	}

	var status string
	if opErr != nil {
		status = types.Classify(opErr).Error()
		logger.WithError(opErr).Warn("operation failed")
	} else {
		status = success(receipt)
		logger.WithField("signature", receipt.Signature).Info("operation confirmed")
	}
	if s.recorder != nil {
		s.recorder.Record(ctx, session.ID(), op, receipt, opErr)
	}
	return s.setStatus(ctx, viewID, status)
}

func (s *Shell) PressInitialize(ctx context.Context, viewID string, session *wallet.Session) (*types.ShellState, error) {
	return s.press(ctx, viewID, session, types.OperationInitialize, StatusInitializing,
		func(signer Signer, _ *types.ShellState) (*types.Receipt, error) {
			return s.vault.Initialize(ctx, signer)
		},
		func(r *types.Receipt) string {
			return fmt.Sprintf(statusInitialized, r.Vault)
		})
}

func (s *Shell) PressTip(ctx context.Context, viewID string, session *wallet.Session) (*types.ShellState, error) {
	return s.press(ctx, viewID, session, types.OperationTip, StatusTipping,
		func(signer Signer, state *types.ShellState) (*types.Receipt, error) {
			// no authority on the receipt until the creator is known
			partial := &types.Receipt{
				Operation: types.OperationTip,
				Signer:    signer.PublicKey().String(),
			}
			creator, err := solana.PublicKeyFromBase58(state.Creator)
			if err != nil {
				return partial, types.NewInvalidInput(err.Error(), err)
			}
			partial.Authority = creator.String()
			amount, err := types.ParseSOL(state.Amount)
			if err != nil {
				return partial, err
			}
			receipt, err := s.vault.Tip(ctx, signer, creator, amount)
			if err != nil {
				partial.Amount = amount
				return partial, err
			}
			return receipt, nil
		},
		func(*types.Receipt) string {
			return StatusTipped
		})
}

func (s *Shell) PressWithdraw(ctx context.Context, viewID string, session *wallet.Session) (*types.ShellState, error) {
	return s.press(ctx, viewID, session, types.OperationWithdraw, StatusWithdrawing,
		func(signer Signer, state *types.ShellState) (*types.Receipt, error) {
			amount, err := types.ParseSOL(state.Amount)
			if err != nil {
				return nil, err
			}
			receipt, err := s.vault.Withdraw(ctx, signer, amount)
			if err != nil {
				return &types.Receipt{
					Operation: types.OperationWithdraw,
					Authority: signer.PublicKey().String(),
					Signer:    signer.PublicKey().String(),
					Amount:    amount,
				}, err
			}
			return receipt, nil
		},
		func(*types.Receipt) string {
			return StatusWithdrawn
		})
}

// Forget drops the view state of a session that is gone.
func (s *Shell) Forget(ctx context.Context, viewID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.DeleteShellState(ctx, viewID); err != nil {
		return fmt.Errorf("fail to delete shell state, err: %w", err)
	}
	return nil
}

// Reset puts a view back to its initial state, used when a new session
// takes it over.
func (s *Shell) Reset(ctx context.Context, viewID string) (*types.ShellState, error) {
	return s.update(ctx, viewID, func(state *types.ShellState) {
		*state = *types.NewShellState()
	})
}
