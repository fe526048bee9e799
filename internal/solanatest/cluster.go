// Package solanatest provides an in-memory cluster that runs the tip_jar
// program's rules, for tests that cannot reach a validator.
package solanatest

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/vultisig/tipjar/internal/pda"
	"github.com/vultisig/tipjar/internal/program"
)

const (
	// FeePerSignature is charged to the fee payer of every landed transaction.
	FeePerSignature = 5000
	// VaultRent is the rent-exempt minimum of a 49 byte account.
	VaultRent = (128 + program.VaultAccountSize) * 3480 * 2

	simulationFailedCode = -32002
)

// Cluster is a fake RPC endpoint. All methods are safe for concurrent use.
type Cluster struct {
	mu        sync.Mutex
	programID solana.PublicKey
	slot      uint64
	lamports  map[solana.PublicKey]uint64
	vaults    map[solana.PublicKey]*program.Vault
	statuses  map[solana.Signature]*rpc.SignatureStatusesResult
	polls     map[solana.Signature]int

	// PendingPolls is how many status polls report a landed signature as
	// unknown before it shows up as confirmed.
	PendingPolls int
	// LandedError, when set, makes the next accepted transaction land with
	// this status error instead of applying its instructions.
	LandedError interface{}
	// SendErr, when set, is returned by the next send.
	SendErr error

	Sent []*solana.Transaction
}

func NewCluster(programID solana.PublicKey) *Cluster {
	return &Cluster{
		programID: programID,
		slot:      1,
		lamports:  make(map[solana.PublicKey]uint64),
		vaults:    make(map[solana.PublicKey]*program.Vault),
		statuses:  make(map[solana.Signature]*rpc.SignatureStatusesResult),
		polls:     make(map[solana.Signature]int),
	}
}

// Airdrop credits lamports to an account.
func (c *Cluster) Airdrop(account solana.PublicKey, lamports uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lamports[account] += lamports
}

func (c *Cluster) Balance(account solana.PublicKey) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lamports[account]
}

// Vault returns a copy of the stored vault record, nil if none.
func (c *Cluster) Vault(address solana.PublicKey) *program.Vault {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vaults[address]
	if !ok {
		return nil
	}
	cp := *v
	return &cp
}

func (c *Cluster) blockhash() solana.Hash {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], c.slot)
	return solana.Hash(sha256.Sum256(buf[:]))
}

func (c *Cluster) GetLatestBlockhash(ctx context.Context, _ rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return &rpc.GetLatestBlockhashResult{
		RPCContext: rpc.RPCContext{Context: rpc.Context{Slot: c.slot}},
		Value: &rpc.LatestBlockhashResult{
			Blockhash:            c.blockhash(),
			LastValidBlockHeight: c.slot + 150,
		},
	}, nil
}

func (c *Cluster) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ctxInfo := rpc.RPCContext{Context: rpc.Context{Slot: c.slot}}
	if v, ok := c.vaults[account]; ok {
		data, err := v.Encode()
		if err != nil {
			return nil, err
		}
		return &rpc.GetAccountInfoResult{
			RPCContext: ctxInfo,
			Value: &rpc.Account{
				Lamports: c.lamports[account],
				Owner:    c.programID,
				Data:     rpc.DataBytesOrJSONFromBytes(data),
			},
		}, nil
	}
	if lamports, ok := c.lamports[account]; ok && lamports > 0 {
		return &rpc.GetAccountInfoResult{
			RPCContext: ctxInfo,
			Value: &rpc.Account{
				Lamports: lamports,
				Owner:    solana.SystemProgramID,
				Data:     rpc.DataBytesOrJSONFromBytes(nil),
			},
		}, nil
	}
	return nil, rpc.ErrNotFound
}

func (c *Cluster) GetSignatureStatuses(ctx context.Context, _ bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	out := &rpc.GetSignatureStatusesResult{
		RPCContext: rpc.RPCContext{Context: rpc.Context{Slot: c.slot}},
		Value:      make([]*rpc.SignatureStatusesResult, len(sigs)),
	}
	for i, sig := range sigs {
		status, ok := c.statuses[sig]
		if !ok {
			continue
		}
		if c.polls[sig] < c.PendingPolls {
			c.polls[sig]++
			continue
		}
		cp := *status
		out.Value[i] = &cp
	}
	return out, nil
}

// SendTransactionWithOpts verifies signatures, runs the preflight checks
// the program would run and applies the transaction. Preflight failures come
// back as simulation errors carrying the program's custom error code.
func (c *Cluster) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	if err := ctx.Err(); err != nil {
		return solana.Signature{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.SendErr != nil {
		err := c.SendErr
		c.SendErr = nil
		return solana.Signature{}, err
	}
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, simulationError("Transaction signature verification failure")
	}
	if err := tx.VerifySignatures(); err != nil {
		return solana.Signature{}, simulationError("Transaction signature verification failure")
	}
	if tx.Message.RecentBlockhash != c.blockhash() {
		return solana.Signature{}, simulationError("Transaction simulation failed: Blockhash not found")
	}

	sig := tx.Signatures[0]
	if _, seen := c.statuses[sig]; seen {
		return solana.Signature{}, simulationError("Transaction simulation failed: This transaction has already been processed")
	}

	payer := tx.Message.AccountKeys[0]
	fee := uint64(FeePerSignature * len(tx.Signatures))
	if c.lamports[payer] < fee {
		return solana.Signature{}, simulationError("Transaction simulation failed: Attempt to debit an account but found no record of a prior credit.")
	}

	if c.LandedError != nil {
		landed := c.LandedError
		c.LandedError = nil
		c.lamports[payer] -= fee
		c.land(sig, landed)
		c.Sent = append(c.Sent, tx)
		return sig, nil
	}

	if !opts.SkipPreflight {
		if err := c.execute(tx, payer, fee, false); err != nil {
			return solana.Signature{}, err.rpcError()
		}
	}
	if err := c.execute(tx, payer, fee, true); err != nil {
		// preflight was skipped, so the failure lands on chain
		c.lamports[payer] -= fee
		c.land(sig, err.statusError())
		c.Sent = append(c.Sent, tx)
		return sig, nil
	}
	c.land(sig, nil)
	c.Sent = append(c.Sent, tx)
	return sig, nil
}

func (c *Cluster) land(sig solana.Signature, txErr interface{}) {
	c.slot++
	c.statuses[sig] = &rpc.SignatureStatusesResult{
		Slot:               c.slot,
		Err:                txErr,
		ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
	}
}

type invocation struct {
	name     string
	amount   uint64
	accounts []solana.PublicKey
}

// execute runs every instruction against a scratch copy of the state and
// commits it only when apply is set and nothing failed.
func (c *Cluster) execute(tx *solana.Transaction, payer solana.PublicKey, fee uint64, apply bool) *execError {
	state := &ledger{
		programID: c.programID,
		lamports:  make(map[solana.PublicKey]uint64, len(c.lamports)),
		vaults:    make(map[solana.PublicKey]*program.Vault, len(c.vaults)),
	}
	for k, v := range c.lamports {
		state.lamports[k] = v
	}
	for k, v := range c.vaults {
		cp := *v
		state.vaults[k] = &cp
	}
	state.lamports[payer] -= fee

	signers := make(map[solana.PublicKey]bool)
	for i := 0; i < int(tx.Message.Header.NumRequiredSignatures) && i < len(tx.Message.AccountKeys); i++ {
		signers[tx.Message.AccountKeys[i]] = true
	}

	for idx, ci := range tx.Message.Instructions {
		if int(ci.ProgramIDIndex) >= len(tx.Message.AccountKeys) {
			return &execError{idx: idx, msg: "invalid program id index"}
		}
		if !tx.Message.AccountKeys[ci.ProgramIDIndex].Equals(c.programID) {
			return &execError{idx: idx, msg: "unsupported program id"}
		}
		name, amount, err := program.DecodeInstructionData(ci.Data)
		if err != nil {
			return &execError{idx: idx, msg: "invalid instruction data"}
		}
		inv := invocation{name: name, amount: amount}
		for _, ai := range ci.Accounts {
			if int(ai) >= len(tx.Message.AccountKeys) {
				return &execError{idx: idx, msg: "invalid account index"}
			}
			inv.accounts = append(inv.accounts, tx.Message.AccountKeys[ai])
		}
		if code, failed := state.run(inv, signers); failed {
			return &execError{idx: idx, code: code, custom: true}
		}
	}

	if apply {
		c.lamports = state.lamports
		c.vaults = state.vaults
	}
	return nil
}

type ledger struct {
	programID solana.PublicKey
	lamports  map[solana.PublicKey]uint64
	vaults    map[solana.PublicKey]*program.Vault
}

const (
	systemAccountInUse      program.ErrorCode = 0
	systemInsufficientFunds program.ErrorCode = 1
	anchorNotEnoughKeys     program.ErrorCode = 3005
	anchorAccountNotSigner  program.ErrorCode = 3010
	anchorFallbackNotFound  program.ErrorCode = 101
)

func (l *ledger) run(inv invocation, signers map[solana.PublicKey]bool) (program.ErrorCode, bool) {
	switch inv.name {
	case program.InstructionInitialize:
		if len(inv.accounts) < 3 {
			return anchorNotEnoughKeys, true
		}
		vault, authority := inv.accounts[0], inv.accounts[1]
		if !signers[authority] {
			return anchorAccountNotSigner, true
		}
		want, bump, err := pda.FindVaultAddress(authority, l.programID)
		if err != nil || !want.Equals(vault) {
			return program.ErrConstraintSeeds, true
		}
		if _, exists := l.vaults[vault]; exists {
			return systemAccountInUse, true
		}
		if l.lamports[authority] < VaultRent {
			return systemInsufficientFunds, true
		}
		l.lamports[authority] -= VaultRent
		l.lamports[vault] += VaultRent
		l.vaults[vault] = &program.Vault{Authority: authority, Bump: bump}
		return 0, false

	case program.InstructionTip:
		if len(inv.accounts) < 3 {
			return anchorNotEnoughKeys, true
		}
		vault, authority, tipper := inv.accounts[0], inv.accounts[1], inv.accounts[2]
		record, ok := l.vaults[vault]
		if !ok {
			return program.ErrAccountNotInitialized, true
		}
		if addr, err := pda.CreateVaultAddress(authority, l.programID, record.Bump); err != nil || !addr.Equals(vault) {
			return program.ErrConstraintSeeds, true
		}
		if !signers[tipper] {
			return anchorAccountNotSigner, true
		}
		if inv.amount == 0 {
			return program.ErrInvalidAmount, true
		}
		if l.lamports[tipper] < inv.amount {
			return systemInsufficientFunds, true
		}
		if record.TotalTips+inv.amount < record.TotalTips {
			return program.ErrMathOverflow, true
		}
		l.lamports[tipper] -= inv.amount
		l.lamports[vault] += inv.amount
		record.TotalTips += inv.amount
		return 0, false

	case program.InstructionWithdraw:
		if len(inv.accounts) < 2 {
			return anchorNotEnoughKeys, true
		}
		vault, authority := inv.accounts[0], inv.accounts[1]
		record, ok := l.vaults[vault]
		if !ok {
			return program.ErrAccountNotInitialized, true
		}
		if !signers[authority] {
			return anchorAccountNotSigner, true
		}
		if addr, err := pda.CreateVaultAddress(authority, l.programID, record.Bump); err != nil || !addr.Equals(vault) {
			return program.ErrConstraintSeeds, true
		}
		if inv.amount == 0 {
			return program.ErrInvalidAmount, true
		}
		if !record.Authority.Equals(authority) {
			return program.ErrUnauthorized, true
		}
		if l.lamports[vault] < inv.amount {
			return program.ErrInsufficientFunds, true
		}
		l.lamports[vault] -= inv.amount
		l.lamports[authority] += inv.amount
		return 0, false
	}
	return anchorFallbackNotFound, true
}

func simulationError(msg string) error {
	return &jsonrpc.RPCError{Code: simulationFailedCode, Message: msg}
}

// execError is an instruction failure, reported either as a preflight
// simulation error or as a landed status error.
type execError struct {
	idx    int
	code   program.ErrorCode
	custom bool
	msg    string
}

func (e *execError) rpcError() error {
	msg := e.msg
	if e.custom {
		msg = fmt.Sprintf("custom program error: 0x%x", uint32(e.code))
	}
	return simulationError(fmt.Sprintf("Transaction simulation failed: Error processing Instruction %d: %s", e.idx, msg))
}

func (e *execError) statusError() interface{} {
	var detail interface{} = e.msg
	if e.custom {
		detail = map[string]interface{}{"Custom": float64(e.code)}
	}
	return map[string]interface{}{"InstructionError": []interface{}{float64(e.idx), detail}}
}
