package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/gagliardetto/solana-go"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/tipjar/config"
	"github.com/vultisig/tipjar/contexthelper"
	"github.com/vultisig/tipjar/internal/types"
	"github.com/vultisig/tipjar/storage"
)

// VaultReader reads vault state from the cluster.
type VaultReader interface {
	GetVault(ctx context.Context, authority solana.PublicKey) (*VaultState, error)
}

type WorkerService struct {
	cfg      config.Config
	db       storage.DatabaseStorage
	vault    VaultReader
	logger   *logrus.Logger
	sdClient *statsd.Client
}

// NewWorker creates a new worker service
func NewWorker(cfg config.Config, db storage.DatabaseStorage, vault VaultReader, sdClient *statsd.Client, logger *logrus.Logger) (*WorkerService, error) {
	if db == nil {
		return nil, fmt.Errorf("database storage is nil")
	}
	if logger == nil {
		logger = logrus.WithField("service", "worker").Logger
	}
	return &WorkerService{
		cfg:      cfg,
		db:       db,
		vault:    vault,
		logger:   logger,
		sdClient: sdClient,
	}, nil
}

func (s *WorkerService) incCounter(name string, tags []string) {
	if s.sdClient == nil {
		return
	}
	if err := s.sdClient.Count(name, 1, tags, 1); err != nil {
		s.logger.Errorf("fail to count metric, err: %v", err)
	}
}

func (s *WorkerService) measureTime(name string, start time.Time, tags []string) {
	if s.sdClient == nil {
		return
	}
	if err := s.sdClient.Timing(name, time.Since(start), tags, 1); err != nil {
		s.logger.Errorf("fail to measure time metric, err: %v", err)
	}
}

// HandleRecordReceipt persists one operation outcome. Confirmed operations
// get the vault's balance at the time of recording attached.
func (s *WorkerService) HandleRecordReceipt(ctx context.Context, t *asynq.Task) error {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return err
	}
	defer s.measureTime("worker.receipt.record.latency", time.Now(), []string{})

	var rec types.ReceiptRecord
	if err := json.Unmarshal(t.Payload(), &rec); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if err := rec.IsValid(); err != nil {
		return fmt.Errorf("invalid receipt: %s: %w", err, asynq.SkipRetry)
	}
	tags := []string{"operation:" + string(rec.Operation), "status:" + string(rec.Status)}
	s.incCounter("worker.receipt.record", tags)

	logger := s.logger.WithFields(logrus.Fields{
		"id":        rec.ID,
		"operation": rec.Operation,
		"status":    rec.Status,
		"authority": rec.Authority,
		"signature": rec.Signature,
	})

	if rec.Status == types.StatusConfirmed && s.vault != nil && rec.VaultLamports == nil {
		if authority, err := solana.PublicKeyFromBase58(rec.Authority); err == nil {
			state, err := s.vault.GetVault(ctx, authority)
			if err != nil {
				logger.WithError(err).Warn("fail to read vault balance")
			} else if state.Exists {
				lamports := state.Lamports
				rec.VaultLamports = &lamports
			}
		}
	}

	if err := s.db.InsertReceipt(ctx, rec); err != nil {
		s.incCounter("worker.receipt.record.error", tags)
		logger.WithError(err).Error("fail to insert receipt")
		return fmt.Errorf("s.db.InsertReceipt failed: %w", err)
	}
	logger.Info("receipt recorded")
	return nil
}
