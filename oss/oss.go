// Package oss provides the object storage abstraction used to persist
// export artifacts, with filesystem, MinIO, and AWS S3 providers behind a
// common interface.
package oss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Interface defines the storage operations the artifact pipeline needs.
type Interface interface {
	// Put uploads the reader's content to the given path and returns
	// object metadata.
	Put(ctx context.Context, path string, reader io.Reader, size int64) (*Object, error)

	// GetStream returns a readable stream for the object. Caller closes it.
	GetStream(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether an object is present at the path.
	Exists(ctx context.Context, path string) (bool, error)

	// GetURL generates a time-limited download URL for the object.
	GetURL(ctx context.Context, path string, expiry time.Duration) (string, error)

	// GetEndpoint returns the storage service endpoint.
	GetEndpoint() string
}

// Object is stored-object metadata.
type Object struct {
	Path         string
	Name         string
	Size         int64
	LastModified time.Time
}

// Config holds object storage settings.
type Config struct {
	Provider string `json:"provider" yaml:"provider"` // filesystem, minio, s3
	ID       string `json:"id" yaml:"id"`
	Secret   string `json:"secret" yaml:"secret"`
	Region   string `json:"region" yaml:"region"`
	Bucket   string `json:"bucket" yaml:"bucket"` // bucket name, or local root for filesystem
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	UseSSL   bool   `json:"use_ssl" yaml:"use_ssl"`
}

// Validate checks the configuration and applies defaults.
func (c *Config) Validate() error {
	switch c.Provider {
	case "", "filesystem", "local":
		if c.Bucket == "" {
			c.Bucket = "./artifacts"
		}
		c.Provider = "filesystem"
	case "minio":
		if c.ID == "" || c.Secret == "" || c.Bucket == "" || c.Endpoint == "" {
			return errors.New("id, secret, bucket, and endpoint are required for MinIO")
		}
	case "s3":
		if c.ID == "" || c.Secret == "" || c.Bucket == "" {
			return errors.New("id, secret, and bucket are required for S3")
		}
		if c.Region == "" {
			c.Region = "us-east-1"
		}
	default:
		return fmt.Errorf("unsupported storage provider: %s", c.Provider)
	}
	return nil
}

// NewStorage creates a storage instance for the configured provider.
func NewStorage(c *Config) (Interface, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage config: %w", err)
	}

	switch c.Provider {
	case "filesystem":
		return NewFileSystem(c.Bucket), nil
	case "minio":
		return NewMinioAdapter(c.Endpoint, c.ID, c.Secret, c.Bucket, c.UseSSL)
	case "s3":
		return NewS3Adapter(c.ID, c.Secret, c.Region, c.Bucket, c.Endpoint)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", c.Provider)
	}
}
