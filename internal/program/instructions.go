package program

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
	ErrMissingAccount         = errors.New("missing instruction account")
)

// Initialize creates the caller's vault.
type Initialize struct {
	Vault     solana.PublicKey
	Authority solana.PublicKey
}

func (i Initialize) Build(programID solana.PublicKey) (solana.Instruction, error) {
	if i.Vault.IsZero() || i.Authority.IsZero() {
		return nil, fmt.Errorf("initialize: %w", ErrMissingAccount)
	}
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(i.Vault, true, false),
		solana.NewAccountMeta(i.Authority, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	return solana.NewInstruction(programID, accounts, InitializeDiscriminator[:]), nil
}

// Tip moves Amount lamports from Tipper into the vault of Authority.
type Tip struct {
	Vault     solana.PublicKey
	Authority solana.PublicKey
	Tipper    solana.PublicKey
	Amount    uint64
}

func (t Tip) Build(programID solana.PublicKey) (solana.Instruction, error) {
	if t.Vault.IsZero() || t.Authority.IsZero() || t.Tipper.IsZero() {
		return nil, fmt.Errorf("tip: %w", ErrMissingAccount)
	}
	data, err := encodeAmount(TipDiscriminator, t.Amount)
	if err != nil {
		return nil, fmt.Errorf("tip: %w", err)
	}
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(t.Vault, true, false),
		solana.NewAccountMeta(t.Authority, false, false),
		solana.NewAccountMeta(t.Tipper, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	return solana.NewInstruction(programID, accounts, data), nil
}

// Withdraw pays Amount lamports out of the vault to its Authority.
type Withdraw struct {
	Vault     solana.PublicKey
	Authority solana.PublicKey
	Amount    uint64
}

func (w Withdraw) Build(programID solana.PublicKey) (solana.Instruction, error) {
	if w.Vault.IsZero() || w.Authority.IsZero() {
		return nil, fmt.Errorf("withdraw: %w", ErrMissingAccount)
	}
	data, err := encodeAmount(WithdrawDiscriminator, w.Amount)
	if err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(w.Vault, true, false),
		solana.NewAccountMeta(w.Authority, true, true),
	}
	return solana.NewInstruction(programID, accounts, data), nil
}

func encodeAmount(disc Discriminator, amount uint64) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(disc[:], false); err != nil {
		return nil, fmt.Errorf("fail to encode discriminator, err: %w", err)
	}
	if err := enc.WriteUint64(amount, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("fail to encode amount, err: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeInstructionData splits instruction data into the instruction name
// and its amount argument (zero for initialize).
func DecodeInstructionData(data []byte) (string, uint64, error) {
	if len(data) < 8 {
		return "", 0, ErrInvalidInstructionData
	}
	var disc Discriminator
	copy(disc[:], data[:8])

	var name string
	switch disc {
	case InitializeDiscriminator:
		if len(data) != 8 {
			return "", 0, ErrInvalidInstructionData
		}
		return InstructionInitialize, 0, nil
	case TipDiscriminator:
		name = InstructionTip
	case WithdrawDiscriminator:
		name = InstructionWithdraw
	default:
		return "", 0, ErrInvalidInstructionData
	}
	if len(data) != 16 {
		return "", 0, ErrInvalidInstructionData
	}
	dec := bin.NewBorshDecoder(data[8:])
	amount, err := dec.ReadUint64(binary.LittleEndian)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrInvalidInstructionData, err)
	}
	return name, amount, nil
}
