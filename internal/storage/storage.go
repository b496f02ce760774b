package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/USA-RedDragon/wander-server/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type StorageManager interface {
	Open(name string) (File, error)
	Create(name string) (File, error)
	MkdirAll(name string, perm fs.FileMode) error
	Remove(name string) error
	Sub(dir string) (Storage, error)
}

type File interface {
	io.ReadCloser
	io.Writer
}

type Storage interface {
	StorageManager
	Close() error
}

// NewStorage opens the storage backing note exports.
func NewStorage(ctx context.Context, cfg *config.Config) (Storage, error) {
	exports := cfg.Persistence.Exports
	switch exports.Driver {
	case config.ExportsDriverFilesystem:
		root := exports.FilesystemOptions.Directory
		err := os.MkdirAll(root, 0755)
		if err != nil {
			return nil, fmt.Errorf("failed to create exports directory: %w", err)
		}
		fsys, err := openFilesystem(root)
		if err != nil {
			return nil, err
		}
		return fsys, nil
	case config.ExportsDriverS3:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(exports.S3Options.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = true
			if exports.S3Options.Endpoint != "" {
				o.BaseEndpoint = aws.String(exports.S3Options.Endpoint)
			}
		})
		return newS3(ctx, exports.S3Options.Bucket, "", client), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", exports.Driver)
	}
}
