package main

import (
	"context"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/tipjar/api"
	"github.com/vultisig/tipjar/config"
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
	redisStorage, err := storage.NewRedisStorage(*cfg)
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := redisStorage.Close(); err != nil {
			logger.Errorf("fail to close redis, err: %v", err)
		}
	}()

	redisOptions := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr(),
		Username: cfg.Redis.User,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	client := asynq.NewClient(redisOptions)
	defer func() {
		if err := client.Close(); err != nil {
			logger.Errorf("fail to close asynq client, err: %v", err)
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

	var db storage.DatabaseStorage
	if cfg.Database.DSN != "" {
		backend, err := postgres.NewPostgresBackend(true, cfg.Database.DSN)
		if err != nil {
			panic(err)
		}
		defer func() {
			if err := backend.Close(); err != nil {
				logger.Errorf("fail to close database, err: %v", err)
			}
		}()
		db = backend
	}

	shell := service.NewShell(vaultClient, redisStorage, service.NewTaskRecorder(client, logger), logger)
	server := api.NewServer(
		cfg.Server.Port,
		cfg.Server.WalletsDir,
		cfg.Server.JWTSecret,
		shell,
		vaultClient,
		db,
		sdClient,
		logger,
	)
	logger.WithFields(logrus.Fields{
		"port":     cfg.Server.Port,
		"rpc":      cfg.Solana.RPCEndpoint,
		"program":  programID.String(),
		"receipts": db != nil,
	}).Info("starting tip jar api")
	if err := server.StartServer(); err != nil {
		panic(err)
	}
}
