// Package clients holds the HTTP adapters for the export pipeline's
// external collaborators.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nibernar/project-service/export"
)

const defaultHTTPTimeout = 30 * time.Second

// FileRetrievalClient fetches project file content from the file service.
type FileRetrievalClient struct {
	baseURL string
	client  *http.Client
}

// NewFileRetrievalClient creates a file service client.
func NewFileRetrievalClient(baseURL string) *FileRetrievalClient {
	return &FileRetrievalClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
}

type batchRequest struct {
	ProjectID string   `json:"projectId"`
	FileIDs   []string `json:"fileIds,omitempty"`
}

type batchResponse struct {
	Successful []export.File `json:"successful"`
	Failed     []string      `json:"failed"`
}

// GetMany fetches file content and metadata in one batch call. An empty ids
// slice requests every file of the project.
func (c *FileRetrievalClient) GetMany(ctx context.Context, projectID string, ids []string) ([]export.File, []string, error) {
	body, err := json.Marshal(batchRequest{ProjectID: projectID, FileIDs: ids})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode batch request: %w", err)
	}

	url := fmt.Sprintf("%s/internal/files/batch", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: file service request failed: %v", export.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, nil, fmt.Errorf("%w: file service returned %d", export.ErrUnavailable, resp.StatusCode)
	default:
		return nil, nil, fmt.Errorf("file service returned %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	var out batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, nil, fmt.Errorf("failed to decode batch response: %w", err)
	}
	return out.Successful, out.Failed, nil
}

// Ready probes the file service health endpoint.
func (c *FileRetrievalClient) Ready(ctx context.Context) error {
	return probeHealth(ctx, c.client, c.baseURL+"/health")
}

// probeHealth issues a GET against a health endpoint and reports non-2xx as
// an error.
func probeHealth(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health probe failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("health probe returned %d", resp.StatusCode)
	}
	return nil
}

// readErrorBody reads a bounded error body for inclusion in error messages.
func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil || len(data) == 0 {
		return "no response body"
	}
	return strings.TrimSpace(string(data))
}
