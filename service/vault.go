package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/tipjar/contexthelper"
	"github.com/vultisig/tipjar/internal/pda"
	"github.com/vultisig/tipjar/internal/program"
	"github.com/vultisig/tipjar/internal/types"
)

// RPCClient is the part of *rpc.Client the vault client needs.
type RPCClient interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// Signer is a connected wallet.
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransaction(tx *solana.Transaction) error
}

// VaultState is a vault as read from the cluster. Exists is false when the
// authority never initialized one.
type VaultState struct {
	Address   solana.PublicKey
	Authority solana.PublicKey
	Bump      uint8
	Exists    bool
	Lamports  types.Lamports
	TotalTips types.Lamports
}

type VaultClient struct {
	rpc            RPCClient
	programID      solana.PublicKey
	confirmTimeout time.Duration
	pollInterval   time.Duration
	logger         *logrus.Logger
}

func NewVaultClient(rpcClient RPCClient, programID solana.PublicKey, confirmTimeout, pollInterval time.Duration, logger *logrus.Logger) (*VaultClient, error) {
	if rpcClient == nil {
		return nil, fmt.Errorf("rpc client is nil")
	}
	if programID.IsZero() {
		return nil, fmt.Errorf("program id is empty")
	}
	if confirmTimeout <= 0 {
		confirmTimeout = 2 * time.Minute
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &VaultClient{
		rpc:            rpcClient,
		programID:      programID,
		confirmTimeout: confirmTimeout,
		pollInterval:   pollInterval,
		logger:         logger,
	}, nil
}

func (c *VaultClient) ProgramID() solana.PublicKey {
	return c.programID
}

// VaultAddress derives the vault of authority under the client's program.
func (c *VaultClient) VaultAddress(authority solana.PublicKey) (solana.PublicKey, error) {
	return pda.VaultAddress(authority, c.programID)
}

// Initialize creates the vault owned by the signer.
func (c *VaultClient) Initialize(ctx context.Context, signer Signer) (*types.Receipt, error) {
	if signer == nil {
		return nil, types.NewNotConnected()
	}
	authority := signer.PublicKey()
	vault, err := c.VaultAddress(authority)
	if err != nil {
		return nil, types.NewInvalidInput(err.Error(), err)
	}
	ix, err := program.Initialize{Vault: vault, Authority: authority}.Build(c.programID)
	if err != nil {
		return nil, types.NewInvalidInput(err.Error(), err)
	}
	sig, err := c.submit(ctx, types.OperationInitialize, signer, ix)
	if err != nil {
		return nil, err
	}
	return &types.Receipt{
		Operation: types.OperationInitialize,
		Signature: sig.String(),
		Vault:     vault.String(),
		Authority: authority.String(),
		Signer:    authority.String(),
	}, nil
}

// Tip sends amount lamports from the signer into the vault of creator. The
// vault's existence is left to the program to check.
func (c *VaultClient) Tip(ctx context.Context, signer Signer, creator solana.PublicKey, amount types.Lamports) (*types.Receipt, error) {
	if signer == nil {
		return nil, types.NewNotConnected()
	}
	vault, err := c.VaultAddress(creator)
	if err != nil {
		return nil, types.NewInvalidInput(err.Error(), err)
	}
	tipper := signer.PublicKey()
	ix, err := program.Tip{
		Vault:     vault,
		Authority: creator,
		Tipper:    tipper,
		Amount:    uint64(amount),
	}.Build(c.programID)
	if err != nil {
		return nil, types.NewInvalidInput(err.Error(), err)
	}
	sig, err := c.submit(ctx, types.OperationTip, signer, ix)
	if err != nil {
		return nil, err
	}
	return &types.Receipt{
		Operation: types.OperationTip,
		Signature: sig.String(),
		Vault:     vault.String(),
		Authority: creator.String(),
		Signer:    tipper.String(),
		Amount:    amount,
	}, nil
}

// Withdraw pays amount lamports out of the signer's own vault.
func (c *VaultClient) Withdraw(ctx context.Context, signer Signer, amount types.Lamports) (*types.Receipt, error) {
	if signer == nil {
		return nil, types.NewNotConnected()
	}
	authority := signer.PublicKey()
	vault, err := c.VaultAddress(authority)
	if err != nil {
		return nil, types.NewInvalidInput(err.Error(), err)
	}
	ix, err := program.Withdraw{Vault: vault, Authority: authority, Amount: uint64(amount)}.Build(c.programID)
	if err != nil {
		return nil, types.NewInvalidInput(err.Error(), err)
	}
	sig, err := c.submit(ctx, types.OperationWithdraw, signer, ix)
	if err != nil {
		return nil, err
	}
	return &types.Receipt{
		Operation: types.OperationWithdraw,
		Signature: sig.String(),
		Vault:     vault.String(),
		Authority: authority.String(),
		Signer:    authority.String(),
		Amount:    amount,
	}, nil
}

// GetVault reads the vault of authority. A vault that was never initialized
// is returned with Exists unset rather than as an error.
func (c *VaultClient) GetVault(ctx context.Context, authority solana.PublicKey) (*VaultState, error) {
	addr, bump, err := pda.FindVaultAddress(authority, c.programID)
	if err != nil {
		return nil, types.NewInvalidInput(err.Error(), err)
	}
	state := &VaultState{Address: addr, Authority: authority, Bump: bump}

	res, err := c.rpc.GetAccountInfo(ctx, addr)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return state, nil
		}
		return nil, remoteError(err)
	}
	if res == nil || res.Value == nil {
		return state, nil
	}
	if !res.Value.Owner.Equals(c.programID) {
		return nil, types.NewRemoteRejected(fmt.Sprintf("account %s is not owned by program %s", addr, c.programID), 0, nil)
	}
	var data []byte
	if res.Value.Data != nil {
		data = res.Value.Data.GetBinary()
	}
	vault, err := program.DecodeVault(data)
	if err != nil {
		return nil, types.NewRemoteRejected(err.Error(), 0, err)
	}
	state.Exists = true
	state.Authority = vault.Authority
	state.Bump = vault.Bump
	state.Lamports = types.Lamports(res.Value.Lamports)
	state.TotalTips = types.Lamports(vault.TotalTips)
	return state, nil
}

func (c *VaultClient) submit(ctx context.Context, op types.OperationType, signer Signer, ix solana.Instruction) (solana.Signature, error) {
	payer := signer.PublicKey()
	logger := c.logger.WithFields(logrus.Fields{
		"operation": op,
		"signer":    payer.String(),
	})

	latest, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		logger.WithError(err).Error("fail to get latest blockhash")
		return solana.Signature{}, remoteError(err)
	}
	if latest == nil || latest.Value == nil {
		return solana.Signature{}, types.NewRemoteRejected("empty blockhash response", 0, nil)
	}

	tx, err := solana.NewTransaction([]solana.Instruction{ix}, latest.Value.Blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return solana.Signature{}, types.NewInvalidInput(err.Error(), err)
	}
	if err := signer.SignTransaction(tx); err != nil {
		logger.WithError(err).Error("fail to sign transaction")
		return solana.Signature{}, types.NewRemoteRejected(err.Error(), 0, err)
	}

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		logger.WithError(err).Error("fail to send transaction")
		return solana.Signature{}, remoteError(err)
	}
	logger = logger.WithField("signature", sig.String())
	logger.Info("transaction sent")

	if err := c.awaitConfirmation(ctx, sig); err != nil {
		logger.WithError(err).Error("transaction not confirmed")
		return sig, err
	}
	logger.Info("transaction confirmed")
	return sig, nil
}

func (c *VaultClient) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	for {
		res, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		switch {
		case err != nil:
			// keep polling through transient RPC failures
			c.logger.WithError(err).WithField("signature", sig.String()).Warn("fail to get signature status")
		case res != nil && len(res.Value) > 0 && res.Value[0] != nil:
			status := res.Value[0]
			if status.Err != nil {
				return statusError(sig, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}
		if err := contexthelper.Sleep(ctx, c.pollInterval); err != nil {
			return types.NewRemoteRejected(
				fmt.Sprintf("transaction %s was not confirmed within %s", sig, c.confirmTimeout), 0, err)
		}
	}
}

// remoteError turns an RPC failure into a RemoteRejected error carrying the
// node's message as is.
func remoteError(err error) error {
	var tjErr *types.TipJarError
	if errors.As(err, &tjErr) {
		return tjErr
	}
	detail := err.Error()
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) && rpcErr.Message != "" {
		detail = rpcErr.Message
	}
	var code uint32
	if c, ok := program.ParseProgramError(detail); ok {
		code = uint32(c)
	}
	return types.NewRemoteRejected(detail, code, err)
}

func statusError(sig solana.Signature, txErr interface{}) error {
	raw, err := json.Marshal(txErr)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", txErr))
	}
	var code uint32
	if c, ok := program.CodeFromTransactionError(txErr); ok {
		code = uint32(c)
	}
	return types.NewRemoteRejected(fmt.Sprintf("transaction %s failed: %s", sig, raw), code, nil)
}
