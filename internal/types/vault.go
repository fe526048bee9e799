package types

import (
	"errors"
	"strings"
)

// DefaultAmount is the amount pre-filled in a fresh shell.
const DefaultAmount = "0.01"

// ShellState is the mutable view state of one shell: the two input strings
// and the last status message.
type ShellState struct {
	Creator string `json:"creator"`
	Amount  string `json:"amount"`
	Status  string `json:"status"`
}

func NewShellState() *ShellState {
	return &ShellState{Amount: DefaultAmount}
}

// ConnectRequest opens a wallet session from a keypair stored on the server.
type ConnectRequest struct {
	Wallet string `json:"wallet" validate:"required"`
}

func (r ConnectRequest) IsValid() error {
	if r.Wallet == "" {
		return errors.New("wallet is required")
	}
	if strings.ContainsAny(r.Wallet, `/\`) || strings.HasPrefix(r.Wallet, ".") {
		return errors.New("invalid wallet name")
	}
	return nil
}

type ConnectResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	PublicKey string `json:"public_key"`
}

// TipRequest optionally overwrites the shell inputs before the tip is sent.
type TipRequest struct {
	Creator *string `json:"creator,omitempty"`
	Amount  *string `json:"amount,omitempty"`
}

// WithdrawRequest optionally overwrites the amount input before withdrawing.
type WithdrawRequest struct {
	Amount *string `json:"amount,omitempty"`
}

// VaultResponse describes a vault as read from the cluster.
type VaultResponse struct {
	Address   string   `json:"address"`
	Authority string   `json:"authority"`
	Bump      uint8    `json:"bump"`
	Exists    bool     `json:"exists"`
	Balance   Lamports `json:"balance"`
	TotalTips Lamports `json:"total_tips"`
}
