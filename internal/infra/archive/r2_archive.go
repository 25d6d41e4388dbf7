package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/neurabot/neurabot-api/internal/domain/history"
)

// R2Archive writes a JSON copy of each history entry to Cloudflare R2 (or any
// S3-compatible bucket).
type R2Archive struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewR2Archive constructs the archive adapter.
func NewR2Archive(endpoint, accessKey, secretKey, bucket, region string, logger *slog.Logger) (*R2Archive, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("archive bucket cannot be empty")
	}
	client, err := minio.New(sanitizeEndpoint(endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       !strings.HasPrefix(strings.ToLower(strings.TrimSpace(endpoint)), "http://"),
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init r2 client: %w", err)
	}
	return &R2Archive{client: client, bucket: bucket, logger: logger.With("component", "archive.r2")}, nil
}

var _ history.Archiver = (*R2Archive)(nil)

// Archive uploads entry under history/<owner>/<id>.json.
func (a *R2Archive) Archive(ctx context.Context, entry history.Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	key := ObjectKey(entry)
	info, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType:      "application/json",
		DisableMultipart: true,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	a.logger.Debug("history archived", "key", key, "etag", info.ETag)
	return nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (a *R2Archive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err == nil && exists {
		return nil
	}
	err = a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return err
	}
	return nil
}

// ObjectKey returns the object name used for entry.
func ObjectKey(entry history.Entry) string {
	owner := entry.UserID
	if owner == "" {
		owner = "anonymous"
	}
	return fmt.Sprintf("history/%s/%s.json", owner, entry.ID)
}

// sanitizeEndpoint strips schemes and paths to satisfy minio.New.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if idx := strings.Index(raw, "/"); idx >= 0 {
		raw = raw[:idx]
	}
	return raw
}
