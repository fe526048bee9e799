package service

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/tipjar/internal/tasks"
	"github.com/vultisig/tipjar/internal/types"
)

// TaskEnqueuer is implemented by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskRecorder hands every shell outcome to the worker through the queue.
// Enqueue failures are logged and never change the shell's status.
type TaskRecorder struct {
	client TaskEnqueuer
	logger *logrus.Logger
}

func NewTaskRecorder(client TaskEnqueuer, logger *logrus.Logger) *TaskRecorder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TaskRecorder{client: client, logger: logger}
}

func (r *TaskRecorder) Record(ctx context.Context, sessionID string, op types.OperationType, receipt *types.Receipt, opErr error) {
	rec := types.NewReceiptRecord(sessionID, op, receipt, opErr)
	task, err := tasks.NewRecordReceipt(rec)
	if err != nil {
		r.logger.WithError(err).Error("fail to create receipt task")
		return
	}
	_, err = r.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.TaskID(rec.ID.String()),
		asynq.Queue(tasks.QUEUE_NAME))
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"id":        rec.ID,
			"operation": op,
		}).WithError(err).Error("fail to enqueue receipt task")
	}
}
