// Package upload pushes produced output files to S3 after a run, so
// downstream warehouse loads can pick them up from a bucket instead of the
// extraction host.
package upload

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/salesforce-extract/internal/config"
	"github.com/ignite/salesforce-extract/internal/pkg/logger"
)

// Uploader copies local output files to an S3 bucket.
type Uploader struct {
	client *s3.Client
	bucket string
	prefix string
}

// New builds an Uploader using the default AWS credential chain.
func New(ctx context.Context, cfg config.UploadConfig) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("upload enabled but no bucket configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Uploader{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// UploadDir uploads every regular file directly under dir to
// s3://bucket/prefix/<name>. Returns the number of files uploaded.
func (u *Uploader) UploadDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read output directory %s: %w", dir, err)
	}

	uploaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		local := filepath.Join(dir, entry.Name())
		f, err := os.Open(local)
		if err != nil {
			return uploaded, fmt.Errorf("open %s: %w", local, err)
		}

		key := path.Join(u.prefix, entry.Name())
		_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(u.bucket),
			Key:    aws.String(key),
			Body:   f,
		})
		f.Close()
		if err != nil {
			return uploaded, fmt.Errorf("upload %s to s3://%s/%s: %w", local, u.bucket, key, err)
		}

		logger.Debug("uploaded output file", "file", entry.Name(), "bucket", u.bucket, "key", key)
		uploaded++
	}
	return uploaded, nil
}
