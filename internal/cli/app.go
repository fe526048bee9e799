// Package cli is the terminal shell of the tip jar: a line-oriented REPL over
// the same shell logic the HTTP API uses.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/tipjar/internal/types"
	"github.com/vultisig/tipjar/internal/wallet"
	"github.com/vultisig/tipjar/service"
)

// viewID is the single view of a terminal shell.
const viewID = "cli"

type App struct {
	shell   *service.Shell
	vault   service.VaultReader
	session *wallet.Session
	logger  *logrus.Logger
}

func NewApp(shell *service.Shell, vault service.VaultReader, logger *logrus.Logger) *App {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &App{
		shell:   shell,
		vault:   vault,
		session: wallet.NewDisconnected(),
		logger:  logger,
	}
}

func (a *App) connected() bool {
	return a.session.Connected()
}

// Connect loads a solana-keygen keypair file and attaches it.
func (a *App) Connect(_ context.Context, path string) error {
	if path == "" {
		printlnFn("Usage: connect <keypair.json>")
		return errors.New("keypair path is required")
	}
	w, err := wallet.LoadKeypair(path)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	a.session.Attach(w)
	printlnFn("Connected:", w.PublicKey().String())
	return nil
}

// ConnectWallet attaches an already loaded wallet.
func (a *App) ConnectWallet(w *wallet.Wallet) {
	a.session.Attach(w)
}

func (a *App) Disconnect(_ context.Context) error {
	a.session.Disconnect()
	printlnFn("Disconnected")
	return nil
}

func (a *App) SetCreator(ctx context.Context, creator string) error {
	state, err := a.shell.SetCreator(ctx, viewID, creator)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn("Creator:", state.Creator)
	return nil
}

func (a *App) SetAmount(ctx context.Context, amount string) error {
	state, err := a.shell.SetAmount(ctx, viewID, amount)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn("Amount:", state.Amount, "SOL")
	return nil
}

func (a *App) press(ctx context.Context, fn func(context.Context, string, *wallet.Session) (*types.ShellState, error)) error {
	state, err := fn(ctx, viewID, a.session)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn(state.Status)
	return nil
}

func (a *App) Initialize(ctx context.Context) error {
	return a.press(ctx, a.shell.PressInitialize)
}

func (a *App) Tip(ctx context.Context) error {
	return a.press(ctx, a.shell.PressTip)
}

func (a *App) Withdraw(ctx context.Context) error {
	return a.press(ctx, a.shell.PressWithdraw)
}

// Vault prints the vault of authority, or of the connected wallet when
// authority is empty.
func (a *App) Vault(ctx context.Context, authority string) error {
	var (
		pk  solana.PublicKey
		err error
	)
	if authority == "" {
		if !a.connected() {
			printlnFn(types.NotConnectedMessage)
			return types.NewNotConnected()
		}
		pk = a.session.PublicKey()
	} else {
		pk, err = solana.PublicKeyFromBase58(authority)
		if err != nil {
			printlnFn("Error: invalid authority:", err)
			return err
		}
	}

	state, err := a.vault.GetVault(ctx, pk)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	if !state.Exists {
		printlnFn(fmt.Sprintf("Vault %s (authority %s) is not initialized", state.Address, pk))
		return nil
	}
	printlnFn(fmt.Sprintf("Vault %s\n  authority:  %s\n  bump:       %d\n  balance:    %s SOL\n  total tips: %s SOL",
		state.Address, state.Authority, state.Bump, state.Lamports.SOL(), state.TotalTips.SOL()))
	return nil
}

func (a *App) Status(ctx context.Context) error {
	state, err := a.shell.State(ctx, viewID)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	walletLine := "not connected"
	if a.connected() {
		walletLine = a.session.PublicKey().String()
	}
	printlnFn(fmt.Sprintf("wallet:  %s\ncreator: %s\namount:  %s SOL\nstatus:  %s",
		walletLine, state.Creator, state.Amount, state.Status))
	return nil
}
