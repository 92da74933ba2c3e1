package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nibernar/project-service/export"
	"github.com/nibernar/project-service/logging/logger"
)

// maxPdfResponseSize caps the PDF bytes read from the conversion service.
const maxPdfResponseSize = 100 << 20 // 100 MiB

// PdfConverterClient renders Markdown to PDF through the conversion service.
// Calls go through a circuit breaker so a failing converter rejects fast
// instead of tying up pipeline workers.
type PdfConverterClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

type convertResult struct {
	data     []byte
	fileName string
}

// NewPdfConverterClient creates a PDF service client.
func NewPdfConverterClient(baseURL string) *PdfConverterClient {
	settings := gobreaker.Settings{
		Name:    "pdf-converter",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf(context.Background(), "circuit breaker %s: %s -> %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			// Rejections caused by the document itself do not indicate an
			// unhealthy converter and must not trip the breaker.
			return err == nil || errors.Is(err, export.ErrPayloadTooLarge) || errors.Is(err, export.ErrConversion)
		},
	}

	return &PdfConverterClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 3 * time.Minute},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

type convertRequest struct {
	Markdown string             `json:"markdown"`
	Options  *export.PdfOptions `json:"options,omitempty"`
}

// Convert renders the Markdown document to PDF bytes.
func (c *PdfConverterClient) Convert(ctx context.Context, markdown string, opts *export.PdfOptions) ([]byte, string, error) {
	value, err := c.breaker.Execute(func() (any, error) {
		return c.convert(ctx, markdown, opts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, "", fmt.Errorf("%w: pdf converter circuit open", export.ErrUnavailable)
		}
		return nil, "", err
	}
	result := value.(*convertResult)
	return result.data, result.fileName, nil
}

func (c *PdfConverterClient) convert(ctx context.Context, markdown string, opts *export.PdfOptions) (*convertResult, error) {
	body, err := json.Marshal(convertRequest{Markdown: markdown, Options: opts})
	if err != nil {
		return nil, fmt.Errorf("failed to encode convert request: %w", err)
	}

	url := fmt.Sprintf("%s/internal/convert/pdf", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build convert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: pdf service request failed: %v", export.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return nil, fmt.Errorf("%w: document rejected by pdf service", export.ErrPayloadTooLarge)
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: %s", export.ErrConversion, readErrorBody(resp.Body))
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: pdf service returned %d", export.ErrUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: pdf service returned %d: %s", export.ErrConversion, resp.StatusCode, readErrorBody(resp.Body))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPdfResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf response: %w", err)
	}
	if int64(len(data)) > maxPdfResponseSize {
		return nil, fmt.Errorf("%w: pdf response exceeds %d bytes", export.ErrPayloadTooLarge, int64(maxPdfResponseSize))
	}

	fileName := fileNameFromDisposition(resp.Header.Get("Content-Disposition"))
	if fileName == "" {
		fileName = fmt.Sprintf("export-%s.pdf", time.Now().Format("20060102-150405"))
	}
	return &convertResult{data: data, fileName: fileName}, nil
}

// Ready probes the PDF service health endpoint. An open breaker reports not
// ready without touching the network.
func (c *PdfConverterClient) Ready(ctx context.Context) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("%w: pdf converter circuit open", export.ErrUnavailable)
	}
	return probeHealth(ctx, c.client, c.baseURL+"/health")
}

// fileNameFromDisposition extracts the filename parameter of a
// Content-Disposition header, if present.
func fileNameFromDisposition(header string) string {
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if value, ok := strings.CutPrefix(part, "filename="); ok {
			return strings.Trim(value, `"`)
		}
	}
	return ""
}
