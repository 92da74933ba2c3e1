// Package markdown combines project files into a single Markdown document.
package markdown

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/nibernar/project-service/export"
)

// tocHeadingDepth limits table-of-contents entries to top-level structure.
const tocHeadingDepth = 2

// parserInstance is initialized once and reused. The parser configuration
// never changes and the goldmark Parser is safe to share; parsing creates
// per-call state via Parse(reader).
var (
	parserInstance goldmark.Markdown
	parserOnce     sync.Once
)

func getParser() goldmark.Markdown {
	parserOnce.Do(func() {
		parserInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return parserInstance
}

// Generator is the default MarkdownGenerator implementation.
type Generator struct{}

// NewGenerator creates a Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Combine merges the given files into one Markdown document in input order.
// Markdown sources are inlined; other text formats are embedded in fenced
// code blocks. An optional table of contents is built from each file's
// top-level headings.
func (g *Generator) Combine(_ context.Context, files []export.File, opts export.CombineOptions) (*export.GeneratedContent, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files to combine", export.ErrConversion)
	}

	now := time.Now().UTC()
	var doc strings.Builder

	doc.WriteString(fmt.Sprintf("# Export of project %s\n\n", opts.ProjectID))

	if opts.IncludeMetadata {
		doc.WriteString(fmt.Sprintf("> Generated at %s · %d file(s)\n\n", now.Format(time.RFC3339), len(files)))
	}

	if opts.IncludeTableOfContents {
		writeTableOfContents(&doc, files)
	}

	for _, file := range files {
		doc.WriteString("\n---\n\n")
		doc.WriteString(fmt.Sprintf("## %s\n\n", file.Name))

		if opts.IncludeMetadata {
			doc.WriteString(fmt.Sprintf("> %d bytes · updated %s\n\n", file.Size, file.UpdatedAt.UTC().Format(time.RFC3339)))
		}

		if isMarkdown(file) {
			doc.WriteString(strings.TrimRight(string(file.Content), "\n"))
			doc.WriteString("\n")
		} else {
			doc.WriteString(fmt.Sprintf("```%s\n%s\n```\n", fenceLanguage(file.Name), strings.TrimRight(string(file.Content), "\n")))
		}
	}

	return &export.GeneratedContent{
		Content:  doc.String(),
		FileName: fmt.Sprintf("%s-export-%s.md", opts.ProjectID, now.Format("20060102-150405")),
		Metadata: map[string]string{
			"projectId":   opts.ProjectID,
			"fileCount":   fmt.Sprintf("%d", len(files)),
			"generatedAt": now.Format(time.RFC3339),
		},
	}, nil
}

// Ready reports readiness; combination is pure in-process work.
func (g *Generator) Ready(context.Context) error {
	return nil
}

// writeTableOfContents emits a nested list of each file and its top-level
// Markdown headings.
func writeTableOfContents(doc *strings.Builder, files []export.File) {
	doc.WriteString("## Table of Contents\n\n")
	for _, file := range files {
		doc.WriteString(fmt.Sprintf("- [%s](#%s)\n", file.Name, anchor(file.Name)))
		if !isMarkdown(file) {
			continue
		}
		for _, h := range headings(file.Content) {
			indent := strings.Repeat("  ", h.level)
			doc.WriteString(fmt.Sprintf("%s- [%s](#%s)\n", indent, h.title, anchor(h.title)))
		}
	}
	doc.WriteString("\n")
}

type heading struct {
	level int // depth below the file entry, starting at 1
	title string
}

// headings parses a Markdown source and collects its shallow headings.
func headings(source []byte) []heading {
	document := getParser().Parser().Parse(text.NewReader(source))

	var out []heading
	_ = ast.Walk(document, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := node.(*ast.Heading); ok && h.Level <= tocHeadingDepth {
			if title := nodeText(h, source); title != "" {
				out = append(out, heading{level: h.Level, title: title})
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}

// nodeText concatenates the raw text segments under a node.
func nodeText(node ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(node, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := child.(*ast.Text); ok {
				sb.Write(t.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// anchor derives a GitHub-style anchor slug from a heading title.
func anchor(title string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

func isMarkdown(file export.File) bool {
	if strings.HasPrefix(file.ContentType, "text/markdown") {
		return true
	}
	switch strings.ToLower(filepath.Ext(file.Name)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// fenceLanguage guesses a fenced-code-block language from the file name.
func fenceLanguage(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	switch ext {
	case "txt", "":
		return "text"
	default:
		return ext
	}
}
