package storage

import (
	"context"

	"github.com/vultisig/tipjar/internal/types"
)

type DatabaseStorage interface {
	Close() error

	InsertReceipt(ctx context.Context, rec types.ReceiptRecord) error
	GetReceiptsByAuthority(ctx context.Context, authority string, take int, skip int) ([]types.ReceiptRecord, error)
}
