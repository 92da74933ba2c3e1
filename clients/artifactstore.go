package clients

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/nibernar/project-service/export"
	"github.com/nibernar/project-service/oss"
)

// artifactPrefix namespaces export artifacts inside the bucket.
const artifactPrefix = "exports/"

// OSSArtifactStore persists export artifacts in object storage and hands out
// time-limited signed download URLs.
type OSSArtifactStore struct {
	storage oss.Interface
	expiry  time.Duration
}

// NewOSSArtifactStore creates an artifact store. expiry bounds the lifetime
// of the signed URLs it returns.
func NewOSSArtifactStore(storage oss.Interface, expiry time.Duration) *OSSArtifactStore {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &OSSArtifactStore{storage: storage, expiry: expiry}
}

// Upload stores the artifact bytes and returns a signed download URL and its
// expiry time.
func (s *OSSArtifactStore) Upload(ctx context.Context, data []byte, name string) (string, time.Time, error) {
	if name == "" {
		return "", time.Time{}, fmt.Errorf("artifact name cannot be empty")
	}
	path := artifactPrefix + name

	if _, err := s.storage.Put(ctx, path, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: artifact upload failed: %v", export.ErrUnavailable, err)
	}

	url, err := s.storage.GetURL(ctx, path, s.expiry)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: signed URL generation failed: %v", export.ErrUnavailable, err)
	}

	return url, time.Now().Add(s.expiry), nil
}

// Ready probes the storage backend with a cheap existence check.
func (s *OSSArtifactStore) Ready(ctx context.Context) error {
	if _, err := s.storage.Exists(ctx, artifactPrefix+".probe"); err != nil {
		return fmt.Errorf("artifact storage not reachable: %w", err)
	}
	return nil
}
