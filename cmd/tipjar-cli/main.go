package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/tipjar/config"
	"github.com/vultisig/tipjar/internal/cli"
	"github.com/vultisig/tipjar/internal/wallet"
	"github.com/vultisig/tipjar/service"
	"github.com/vultisig/tipjar/storage"
)

func main() {
	configName := flag.String("config", "config", "config file name without extension")
	keypair := flag.String("keypair", "", "solana-keygen keypair to connect on start")
	verbose := flag.Bool("v", false, "log operations to stderr")
	flag.Parse()

	cfg, err := config.ReadConfig(*configName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if *verbose {
		logger.SetLevel(logrus.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var files service.FileStore
	if cfg.Solana.IDLFile != "" {
		blockStorage, err := storage.NewBlockStorage(*cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		files = blockStorage
	}
	programID, err := service.ResolveProgramID(ctx, *cfg, files, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	vaultClient, err := service.NewVaultClient(rpc.New(cfg.Solana.RPCEndpoint), programID,
		cfg.Solana.ConfirmTimeout, cfg.Solana.PollInterval, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	shell := service.NewShell(vaultClient, storage.NewMemoryStorage(), nil, logger)
	app := cli.NewApp(shell, vaultClient, logger)

	path := *keypair
	if path == "" {
		path = cfg.Solana.Keypair
	}
	if path != "" {
		w, err := wallet.LoadKeypair(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		app.ConnectWallet(w)
		fmt.Println("Connected:", w.PublicKey().String())
	}

	fmt.Printf("Tip jar on %s, program %s. Type 'help' for commands.\n", cfg.Solana.RPCEndpoint, programID)
	cli.Run(ctx, app, os.Stdin)
}
