// Package export implements the project-export pipeline: request
// fingerprinting, artifact caching, cross-process deduplication, bounded
// concurrency, and progress tracking for asynchronous conversions.
package export

import "time"

// Format is the requested output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
)

// PdfOptions tune the PDF conversion stage.
type PdfOptions struct {
	PageSize               string `json:"pageSize,omitempty" validate:"omitempty,oneof=A4 Letter Legal"`
	Margins                int    `json:"margins,omitempty" validate:"omitempty,gte=0,lte=100"`
	IncludeTableOfContents bool   `json:"includeTableOfContents,omitempty"`
}

// Request describes a project export. Immutable once accepted.
type Request struct {
	ProjectID       string      `json:"projectId" validate:"required,max=128"`
	Format          Format      `json:"format" validate:"required,oneof=markdown pdf"`
	FileIDs         []string    `json:"fileIds,omitempty" validate:"omitempty,max=500,dive,required,max=128"`
	IncludeMetadata bool        `json:"includeMetadata,omitempty"`
	PdfOptions      *PdfOptions `json:"pdfOptions,omitempty"`
}

// Artifact is the downloadable export output. Produced once per fingerprint
// per TTL window; immutable; superseded, never mutated, on re-generation.
type Artifact struct {
	DownloadURL string    `json:"downloadUrl"`
	FileName    string    `json:"fileName"`
	FileSize    int64     `json:"fileSize"`
	Format      Format    `json:"format"`
	ExpiresAt   time.Time `json:"expiresAt"`
	ContentHash string    `json:"contentHash"`
}

// Fresh reports whether the artifact's download URL is still valid.
func (a *Artifact) Fresh(now time.Time) bool {
	return a != nil && a.ExpiresAt.After(now)
}

// State is the lifecycle state of an export attempt. Transitions are
// monotonic: PENDING -> PROCESSING -> {COMPLETED, FAILED}; the terminal
// states are immutable.
type State string

const (
	StatePending    State = "PENDING"
	StateProcessing State = "PROCESSING"
	StateCompleted  State = "COMPLETED"
	StateFailed     State = "FAILED"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// rank orders states along the allowed transition path.
func (s State) rank() int {
	switch s {
	case StatePending:
		return 0
	case StateProcessing:
		return 1
	case StateCompleted, StateFailed:
		return 2
	default:
		return -1
	}
}

// Status is the progress record of one export attempt, keyed by a
// server-generated export id distinct from the request fingerprint.
type Status struct {
	ExportID string `json:"exportId"`
	// UserID is persisted for ownership checks; handlers blank it before
	// responding.
	UserID                        string    `json:"userId,omitempty"`
	State                         State     `json:"state"`
	Progress                      int       `json:"progress"`
	Message                       string    `json:"message,omitempty"`
	Error                         string    `json:"error,omitempty"`
	EstimatedTimeRemainingSeconds int       `json:"estimatedTimeRemainingSeconds,omitempty"`
	LastUpdated                   time.Time `json:"lastUpdated"`
	Artifact                      *Artifact `json:"artifact,omitempty"`
}

// Complexity classifies a request to decide synchronous vs asynchronous
// execution.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Classify derives the complexity of a request. PDF conversion or a large
// file selection pushes the request onto the asynchronous path. A missing
// file selection means "all project files", whose count is unknown here, so
// it classifies as medium.
func Classify(req *Request) Complexity {
	if req.Format == FormatPDF {
		return ComplexityHigh
	}
	n := len(req.FileIDs)
	switch {
	case n > 20:
		return ComplexityHigh
	case n == 0 || n > 5:
		return ComplexityMedium
	default:
		return ComplexityLow
	}
}

// Async reports whether the complexity defaults to asynchronous execution.
func (c Complexity) Async() bool {
	return c == ComplexityHigh
}

// Result is the orchestrator's answer to an export request: either an
// immediate artifact (synchronous path) or an export id to poll.
type Result struct {
	Artifact            *Artifact `json:"artifact,omitempty"`
	ExportID            string    `json:"exportId,omitempty"`
	Status              State     `json:"status,omitempty"`
	EstimatedDurationMs int64     `json:"estimatedDurationMs,omitempty"`
	// Deduplicated marks results pointing at an execution started by a
	// concurrent identical request.
	Deduplicated bool `json:"deduplicated,omitempty"`
	Async        bool `json:"-"`
}

// ServiceHealth is the readiness of one collaborator.
type ServiceHealth struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// HealthMetrics reports pipeline occupancy.
type HealthMetrics struct {
	ActiveExports  int32 `json:"activeExports"`
	QueuedExports  int32 `json:"queuedExports"`
	MaxConcurrency int32 `json:"maxConcurrency"`
}

// ServiceStatus aggregates collaborator readiness into an overall verdict.
type ServiceStatus struct {
	Status   string                   `json:"status"` // healthy, degraded, unhealthy
	Services map[string]ServiceHealth `json:"services"`
	Metrics  HealthMetrics            `json:"metrics"`
}
