package publish

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"shootcast/internal/report"
)

type BucketConfig struct {
	Endpoint  string
	Bucket    string
	Key       string
	AccessKey string
	SecretKey string
	Region    string
}

// Bucket uploads the artifact to S3-compatible object storage.
type Bucket struct {
	client *minio.Client
	bucket string
	key    string
}

func NewBucket(cfg BucketConfig) (*Bucket, error) {
	client, err := minio.New(sanitizeEndpoint(cfg.Endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       !strings.HasPrefix(strings.ToLower(strings.TrimSpace(cfg.Endpoint)), "http://"),
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &Bucket{client: client, bucket: cfg.Bucket, key: cfg.Key}, nil
}

func (b *Bucket) Name() string {
	return "s3"
}

func (b *Bucket) Publish(ctx context.Context, a report.Artifact) error {
	_, err := b.client.PutObject(ctx, b.bucket, b.key, bytes.NewReader(a.Data), int64(len(a.Data)), minio.PutObjectOptions{
		ContentType:      "application/json",
		CacheControl:     "no-cache",
		DisableMultipart: true,
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", b.bucket, b.key, err)
	}
	return nil
}

// sanitizeEndpoint strips the scheme and any path, as minio.New expects a
// bare host[:port].
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if host, _, found := strings.Cut(raw, "/"); found {
		raw = host
	}
	return raw
}
