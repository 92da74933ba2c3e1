package export

import (
	"context"
	"time"
)

// File is an exportable project file returned by the retrieval service.
type File struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	Content     []byte    `json:"content"`
	Size        int64     `json:"size"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FileRetrieval fetches file content and metadata by id. An empty ids slice
// means every file of the project.
type FileRetrieval interface {
	GetMany(ctx context.Context, projectID string, ids []string) (successful []File, failed []string, err error)
	Ready(ctx context.Context) error
}

// CombineOptions shape the combined Markdown document.
type CombineOptions struct {
	ProjectID              string
	IncludeMetadata        bool
	IncludeTableOfContents bool
}

// GeneratedContent is the output of the Markdown combination stage.
type GeneratedContent struct {
	Content  string
	FileName string
	Metadata map[string]string
}

// MarkdownGenerator combines project files into a single Markdown document.
type MarkdownGenerator interface {
	Combine(ctx context.Context, files []File, opts CombineOptions) (*GeneratedContent, error)
	Ready(ctx context.Context) error
}

// PdfConverter renders a Markdown document to PDF bytes.
type PdfConverter interface {
	Convert(ctx context.Context, markdown string, opts *PdfOptions) (data []byte, fileName string, err error)
	Ready(ctx context.Context) error
}

// ArtifactStore persists artifact bytes and returns a time-limited signed
// download URL.
type ArtifactStore interface {
	Upload(ctx context.Context, data []byte, name string) (url string, expiresAt time.Time, err error)
	Ready(ctx context.Context) error
}

// Collaborators bundles the pipeline's external dependencies for
// constructor injection.
type Collaborators struct {
	Files    FileRetrieval
	Markdown MarkdownGenerator
	Pdf      PdfConverter
	Store    ArtifactStore
}
