package markdown

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nibernar/project-service/export"
)

func mdFile(name, content string) export.File {
	return export.File{
		ID:        name,
		Name:      name,
		Content:   []byte(content),
		Size:      int64(len(content)),
		UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCombine_OrderAndSeparators(t *testing.T) {
	g := NewGenerator()

	content, err := g.Combine(context.Background(), []export.File{
		mdFile("intro.md", "# Intro\n\nhello"),
		mdFile("usage.md", "# Usage\n\nworld"),
	}, export.CombineOptions{ProjectID: "proj-1"})
	if err != nil {
		t.Fatalf("Combine failed: %v", err)
	}

	doc := content.Content
	if !strings.HasPrefix(doc, "# Export of project proj-1") {
		t.Error("document must open with the project header")
	}

	intro := strings.Index(doc, "## intro.md")
	usage := strings.Index(doc, "## usage.md")
	if intro == -1 || usage == -1 {
		t.Fatal("per-file sections missing")
	}
	if intro > usage {
		t.Error("files must appear in input order")
	}
	if strings.Count(doc, "\n---\n") != 2 {
		t.Errorf("got %d separators, want one per file", strings.Count(doc, "\n---\n"))
	}

	if !strings.HasPrefix(content.FileName, "proj-1-export-") || !strings.HasSuffix(content.FileName, ".md") {
		t.Errorf("unexpected file name %q", content.FileName)
	}
}

func TestCombine_EmptyInputFails(t *testing.T) {
	g := NewGenerator()

	if _, err := g.Combine(context.Background(), nil, export.CombineOptions{ProjectID: "p"}); err == nil {
		t.Error("expected error for empty file list")
	}
}

func TestCombine_TableOfContents(t *testing.T) {
	g := NewGenerator()

	content, err := g.Combine(context.Background(), []export.File{
		mdFile("guide.md", "# Getting Started\n\n## Install\n\ntext\n\n### Too Deep\n\nmore"),
	}, export.CombineOptions{ProjectID: "proj-1", IncludeTableOfContents: true})
	if err != nil {
		t.Fatalf("Combine failed: %v", err)
	}

	doc := content.Content
	if !strings.Contains(doc, "## Table of Contents") {
		t.Fatal("table of contents missing")
	}
	if !strings.Contains(doc, "[Getting Started](#getting-started)") {
		t.Error("level-1 heading missing from toc")
	}
	if !strings.Contains(doc, "[Install](#install)") {
		t.Error("level-2 heading missing from toc")
	}
	if strings.Contains(doc, "[Too Deep]") {
		t.Error("headings below level 2 must not appear in the toc")
	}
}

func TestCombine_Metadata(t *testing.T) {
	g := NewGenerator()

	content, err := g.Combine(context.Background(), []export.File{
		mdFile("a.md", "body"),
	}, export.CombineOptions{ProjectID: "proj-1", IncludeMetadata: true})
	if err != nil {
		t.Fatalf("Combine failed: %v", err)
	}

	if !strings.Contains(content.Content, "1 file(s)") {
		t.Error("document metadata blockquote missing")
	}
	if !strings.Contains(content.Content, "2026-03-01T12:00:00Z") {
		t.Error("per-file update timestamp missing")
	}
	if content.Metadata["fileCount"] != "1" {
		t.Errorf("got fileCount %q, want 1", content.Metadata["fileCount"])
	}
}

func TestCombine_NonMarkdownFenced(t *testing.T) {
	g := NewGenerator()

	content, err := g.Combine(context.Background(), []export.File{
		mdFile("main.go", "package main"),
		mdFile("notes.txt", "plain notes"),
	}, export.CombineOptions{ProjectID: "proj-1"})
	if err != nil {
		t.Fatalf("Combine failed: %v", err)
	}

	if !strings.Contains(content.Content, "```go\npackage main\n```") {
		t.Error("go source should be fenced with its language")
	}
	if !strings.Contains(content.Content, "```text\nplain notes\n```") {
		t.Error("txt files should be fenced as text")
	}
}

func TestAnchor(t *testing.T) {
	cases := map[string]string{
		"Getting Started":  "getting-started",
		"API & Reference":  "api--reference",
		"Config_values 2":  "config-values-2",
		"Déploiement":      "dploiement",
	}
	for in, want := range cases {
		if got := anchor(in); got != want {
			t.Errorf("anchor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGenerator_Ready(t *testing.T) {
	if err := NewGenerator().Ready(context.Background()); err != nil {
		t.Errorf("generator should always be ready, got %v", err)
	}
}
