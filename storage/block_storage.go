package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/tipjar/config"
)

// BlockStorage serves program documents (the IDL) from S3, falling back to
// block_storage.local_dir when no bucket is configured.
type BlockStorage struct {
	cfg      config.Config
	session  *session.Session
	s3Client *s3.S3
	logger   *logrus.Logger
}

func NewBlockStorage(cfg config.Config) (*BlockStorage, error) {
	awsCfg := &aws.Config{
		Region:           aws.String(cfg.BlockStorage.Region),
		Credentials:      credentials.NewStaticCredentials(cfg.BlockStorage.AccessKey, cfg.BlockStorage.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	}
	if cfg.BlockStorage.Host != "" {
		awsCfg.Endpoint = aws.String(cfg.BlockStorage.Host)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, err
	}
	return &BlockStorage{
		cfg:      cfg,
		session:  sess,
		s3Client: s3.New(sess),
		logger:   logrus.WithField("module", "block_storage").Logger,
	}, nil
}

func (bs *BlockStorage) remote() bool {
	return bs.cfg.BlockStorage.Bucket != ""
}

func (bs *BlockStorage) localPath(fileName string) string {
	return filepath.Join(bs.cfg.BlockStorage.LocalDir, filepath.Base(fileName))
}

func (bs *BlockStorage) FileExist(ctx context.Context, fileName string) (bool, error) {
	if !bs.remote() {
		_, err := os.Stat(bs.localPath(fileName))
		if os.IsNotExist(err) {
			return false, nil
		}
		return err == nil, err
	}
	_, err := bs.s3Client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bs.cfg.BlockStorage.Bucket),
		Key:    aws.String(fileName),
	})
	if err != nil {
		bs.logger.Error(err)
		return false, nil
	}
	return true, nil
}

func (bs *BlockStorage) UploadFile(ctx context.Context, fileContent []byte, fileName string) error {
	if !bs.remote() {
		if err := os.MkdirAll(bs.cfg.BlockStorage.LocalDir, 0o755); err != nil {
			return fmt.Errorf("fail to create local dir, err: %w", err)
		}
		return os.WriteFile(bs.localPath(fileName), fileContent, 0o644)
	}
	bs.logger.Infoln("upload file", fileName, "bucket", bs.cfg.BlockStorage.Bucket, "content length", len(fileContent))
	output, err := bs.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bs.cfg.BlockStorage.Bucket),
		Key:           aws.String(fileName),
		Body:          aws.ReadSeekCloser(bytes.NewReader(fileContent)),
		ContentLength: aws.Int64(int64(len(fileContent))),
	})
	if err != nil {
		bs.logger.Error(err)
		return err
	}
	if output != nil {
		bs.logger.Infof("upload file %s success, version id: %s", fileName, aws.StringValue(output.VersionId))
	}
	return nil
}

func (bs *BlockStorage) GetFile(ctx context.Context, fileName string) ([]byte, error) {
	if !bs.remote() {
		return os.ReadFile(bs.localPath(fileName))
	}
	bs.logger.Infoln("get file", fileName, "bucket", bs.cfg.BlockStorage.Bucket)
	output, err := bs.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bs.cfg.BlockStorage.Bucket),
		Key:    aws.String(fileName),
	})
	if err != nil {
		bs.logger.Error("error getting file: ", err)
		return nil, err
	}
	defer func() {
		if err := output.Body.Close(); err != nil {
			bs.logger.Error(err)
		}
	}()
	return io.ReadAll(output.Body)
}
