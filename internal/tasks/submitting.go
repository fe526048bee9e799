package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/vultisig/tipjar/internal/types"
)

// NewRecordReceipt wraps a ledger row into a task for the worker.
func NewRecordReceipt(rec types.ReceiptRecord) (*asynq.Task, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("fail to marshal receipt, err: %w", err)
	}
	return asynq.NewTask(TypeRecordReceipt, payload), nil
}
