package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/tipjar/config"
	"github.com/vultisig/tipjar/internal/program"
)

// FileStore is where published IDL documents live.
type FileStore interface {
	FileExist(ctx context.Context, fileName string) (bool, error)
	GetFile(ctx context.Context, fileName string) ([]byte, error)
	UploadFile(ctx context.Context, fileContent []byte, fileName string) error
}

// ResolveProgramID decides which program the clients talk to. Without an
// IDL file the configured program id is used. With one, the document is
// fetched (and seeded from the bundled IDL when missing), validated against
// the compiled builders, and its address wins over the configured id.
func ResolveProgramID(ctx context.Context, cfg config.Config, files FileStore, logger *logrus.Logger) (solana.PublicKey, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	configured, err := solana.PublicKeyFromBase58(cfg.Solana.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid program id %q, err: %w", cfg.Solana.ProgramID, err)
	}
	name := cfg.Solana.IDLFile
	if name == "" || files == nil {
		return configured, nil
	}

	exists, err := files.FileExist(ctx, name)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("fail to check idl %s, err: %w", name, err)
	}
	if !exists {
		logger.WithField("idl", name).Info("idl not found, publishing bundled document")
		if err := files.UploadFile(ctx, program.DefaultIDL, name); err != nil {
			return solana.PublicKey{}, fmt.Errorf("fail to publish idl %s, err: %w", name, err)
		}
	}

	content, err := files.GetFile(ctx, name)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("fail to get idl %s, err: %w", name, err)
	}
	idl, err := program.LoadIDL(bytes.NewReader(content))
	if err != nil {
		return solana.PublicKey{}, err
	}
	if err := idl.Validate(); err != nil {
		return solana.PublicKey{}, fmt.Errorf("idl %s does not match the client, err: %w", name, err)
	}
	if idl.Address == "" {
		return configured, nil
	}
	id, err := idl.ProgramID()
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid idl address, err: %w", err)
	}
	if !id.Equals(configured) {
		logger.WithFields(logrus.Fields{
			"configured": configured.String(),
			"idl":        id.String(),
		}).Warn("idl address overrides configured program id")
	}
	return id, nil
}
