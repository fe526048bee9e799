package main

import (
	"context"
	"fmt"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/tipjar/config"
	"github.com/vultisig/tipjar/internal/tasks"
	"github.com/vultisig/tipjar/service"
	"github.com/vultisig/tipjar/storage"
	"github.com/vultisig/tipjar/storage/postgres"
)

func main() {
	cfg, err := config.ReadConfig("config")
	if err != nil {
		panic(err)
	}
	logger := logrus.New()

	sdClient, err := statsd.New(cfg.Datadog.Host + ":" + cfg.Datadog.Port)
	if err != nil {
		panic(err)
	}
	if cfg.Database.DSN == "" {
		panic(fmt.Errorf("database.dsn is required by the worker"))
	}
	db, err := postgres.NewPostgresBackend(false, cfg.Database.DSN)
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Errorf("fail to close database, err: %v", err)
		}
	}()

	blockStorage, err := storage.NewBlockStorage(*cfg)
	if err != nil {
		panic(err)
	}
	programID, err := service.ResolveProgramID(context.Background(), *cfg, blockStorage, logger)
	if err != nil {
		panic(err)
	}
	vaultClient, err := service.NewVaultClient(rpc.New(cfg.Solana.RPCEndpoint), programID,
		cfg.Solana.ConfirmTimeout, cfg.Solana.PollInterval, logger)
	if err != nil {
		panic(err)
	}

	workerService, err := service.NewWorker(*cfg, db, vaultClient, sdClient, logger)
	if err != nil {
		panic(err)
	}

	redisOptions := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr(),
		Username: cfg.Redis.User,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	srv := asynq.NewServer(
		redisOptions,
		asynq.Config{
			Logger:      logger,
			Concurrency: 10,
			Queues: map[string]int{
				tasks.QUEUE_NAME: 10,
			},
		},
	)

	// mux maps a type to a handler
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeRecordReceipt, workerService.HandleRecordReceipt)
	if err := srv.Run(mux); err != nil {
		panic(fmt.Errorf("could not run server: %w", err))
	}
}
