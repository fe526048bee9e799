package program

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// VaultAccountSize is discriminator + authority + bump + total_tips.
const VaultAccountSize = 8 + 32 + 1 + 8

var ErrInvalidAccountData = errors.New("unexpected vault account data")

// Vault is the on-chain record kept per authority.
type Vault struct {
	Authority solana.PublicKey
	Bump      uint8
	TotalTips uint64
}

// DecodeVault parses raw account data. Trailing bytes are ignored.
func DecodeVault(data []byte) (*Vault, error) {
	if len(data) < VaultAccountSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidAccountData, len(data))
	}
	if !bytes.Equal(data[:8], VaultDiscriminator[:]) {
		return nil, fmt.Errorf("%w: discriminator mismatch", ErrInvalidAccountData)
	}

	dec := bin.NewBorshDecoder(data[8:])
	authority, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	bump, err := dec.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	totalTips, err := dec.ReadUint64(binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	return &Vault{
		Authority: solana.PublicKeyFromBytes(authority),
		Bump:      bump,
		TotalTips: totalTips,
	}, nil
}

// Encode serialises the vault in its on-chain layout.
func (v *Vault) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(VaultDiscriminator[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(v.Authority.Bytes(), false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(v.Bump); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(v.TotalTips, binary.LittleEndian); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
