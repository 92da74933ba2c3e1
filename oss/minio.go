package oss

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioAdapter implements the Interface for MinIO and other S3-compatible
// object stores reachable through the MinIO client.
type MinioAdapter struct {
	client   *minio.Client
	bucket   string
	endpoint string
}

// NewMinioAdapter creates a MinIO storage adapter.
func NewMinioAdapter(endpoint, accessKeyID, secretAccessKey, bucket string, useSSL bool) (*MinioAdapter, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinioAdapter{
		client:   client,
		bucket:   bucket,
		endpoint: endpoint,
	}, nil
}

func (a *MinioAdapter) Put(ctx context.Context, path string, reader io.Reader, size int64) (*Object, error) {
	info, err := a.client.PutObject(ctx, a.bucket, path, reader, size, minio.PutObjectOptions{
		ContentType: contentTypeFor(path),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put object: %w", err)
	}

	return &Object{
		Path:         path,
		Name:         filepath.Base(path),
		Size:         info.Size,
		LastModified: time.Now(),
	}, nil
}

func (a *MinioAdapter) GetStream(ctx context.Context, path string) (io.ReadCloser, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return obj, nil
}

func (a *MinioAdapter) Delete(ctx context.Context, path string) error {
	if err := a.client.RemoveObject(ctx, a.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (a *MinioAdapter) Exists(ctx context.Context, path string) (bool, error) {
	_, err := a.client.StatObject(ctx, a.bucket, path, minio.StatObjectOptions{})
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return true, nil
}

func (a *MinioAdapter) GetURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	u, err := a.client.PresignedGetObject(ctx, a.bucket, path, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u.String(), nil
}

func (a *MinioAdapter) GetEndpoint() string {
	return a.endpoint
}

// contentTypeFor maps the artifact file extension to a MIME type.
func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
