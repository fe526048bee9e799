package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OperationType string

const (
	OperationInitialize OperationType = "initialize"
	OperationTip        OperationType = "tip"
	OperationWithdraw   OperationType = "withdraw"
)

type ReceiptStatus string

const (
	StatusConfirmed ReceiptStatus = "CONFIRMED"
	StatusRejected  ReceiptStatus = "REJECTED"
)

// Receipt is what the vault client returns for a confirmed operation.
type Receipt struct {
	Operation OperationType `json:"operation"`
	Signature string        `json:"signature"`
	Vault     string        `json:"vault"`
	Authority string        `json:"authority"`
	Signer    string        `json:"signer"`
	Amount    Lamports      `json:"amount"`
}

// ReceiptRecord is a row of the receipt ledger. Rejected operations are
// recorded too, with the error text and without a signature when the
// request never reached the cluster.
type ReceiptRecord struct {
	ID            uuid.UUID     `json:"id"`
	SessionID     string        `json:"session_id"`
	Operation     OperationType `json:"operation"`
	Authority     string        `json:"authority"`
	Vault         string        `json:"vault"`
	Signer        string        `json:"signer"`
	Amount        Lamports      `json:"amount"`
	Signature     string        `json:"signature,omitempty"`
	Status        ReceiptStatus `json:"status"`
	ErrorMessage  *string       `json:"error_message,omitempty"`
	VaultLamports *Lamports     `json:"vault_lamports,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// NewReceiptRecord builds the ledger row for an operation outcome. receipt
// may be nil when the operation failed before a request was built.
func NewReceiptRecord(sessionID string, op OperationType, receipt *Receipt, opErr error) ReceiptRecord {
	rec := ReceiptRecord{
		ID:        uuid.New(),
		SessionID: sessionID,
		Operation: op,
		Status:    StatusConfirmed,
		CreatedAt: time.Now().UTC(),
	}
	if receipt != nil {
		rec.Authority = receipt.Authority
		rec.Vault = receipt.Vault
		rec.Signer = receipt.Signer
		rec.Amount = receipt.Amount
		rec.Signature = receipt.Signature
	}
	if opErr != nil {
		rec.Status = StatusRejected
		msg := Classify(opErr).Error()
		rec.ErrorMessage = &msg
	}
	return rec
}

func (r ReceiptRecord) IsValid() error {
	if r.ID == uuid.Nil {
		return errors.New("id is required")
	}
	switch r.Operation {
	case OperationInitialize, OperationTip, OperationWithdraw:
	default:
		return fmt.Errorf("unknown operation %q", r.Operation)
	}
	switch r.Status {
	case StatusConfirmed:
		if r.Signature == "" {
			return errors.New("confirmed receipt without signature")
		}
	case StatusRejected:
	default:
		return fmt.Errorf("unknown status %q", r.Status)
	}
	return nil
}
