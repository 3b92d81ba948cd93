package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"staybook/internal/app/policies"
)

type Config struct {
	Endpoint  string
	UseSSL    bool
	AccessKey string
	SecretKey string
	Bucket    string
}

// objectStore is the part of the MinIO client the archive needs.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, key string, reader *bytes.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// minioStore adapts *minio.Client, whose PutObject takes an io.Reader.
type minioStore struct {
	client *minio.Client
}

func (m minioStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return m.client.BucketExists(ctx, bucket)
}

func (m minioStore) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	return m.client.MakeBucket(ctx, bucket, opts)
}

func (m minioStore) PutObject(ctx context.Context, bucket, key string, reader *bytes.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return m.client.PutObject(ctx, bucket, key, reader, size, opts)
}

// ReceiptArchive keeps JSON receipts in a private S3-compatible bucket.
type ReceiptArchive struct {
	bucket         string
	store          objectStore
	logger         *slog.Logger
	bucketInitOnce sync.Once
	bucketInitErr  error
}

func NewReceiptArchive(cfg Config, logger *slog.Logger) (*ReceiptArchive, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	client, err := minio.New(parseEndpoint(endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	return &ReceiptArchive{bucket: bucket, store: minioStore{client: client}, logger: logger}, nil
}

// PutReceipt stores body under key and returns its s3:// location.
func (a *ReceiptArchive) PutReceipt(ctx context.Context, key string, body []byte) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("s3: object key is required")
	}
	if err := a.ensureBucket(ctx); err != nil {
		return "", err
	}
	_, err := a.store.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}
	location := fmt.Sprintf("s3://%s/%s", a.bucket, key)
	if a.logger != nil {
		a.logger.Debug("receipt stored", "location", location, "size", len(body))
	}
	return location, nil
}

func (a *ReceiptArchive) ensureBucket(ctx context.Context) error {
	a.bucketInitOnce.Do(func() {
		exists, err := a.store.BucketExists(ctx, a.bucket)
		if err != nil {
			a.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := a.store.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			a.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
		}
	})
	return a.bucketInitErr
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var _ policies.ReceiptArchive = (*ReceiptArchive)(nil)
