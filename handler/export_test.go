package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nibernar/project-service/cache"
	"github.com/nibernar/project-service/concurrency"
	"github.com/nibernar/project-service/config"
	"github.com/nibernar/project-service/export"
	"github.com/nibernar/project-service/lock"
)

type stubFiles struct{ files []export.File }

func (s *stubFiles) GetMany(context.Context, string, []string) ([]export.File, []string, error) {
	return s.files, nil, nil
}
func (s *stubFiles) Ready(context.Context) error { return nil }

type stubMarkdown struct{}

func (stubMarkdown) Combine(_ context.Context, files []export.File, opts export.CombineOptions) (*export.GeneratedContent, error) {
	return &export.GeneratedContent{Content: "# doc", FileName: opts.ProjectID + "-export.md"}, nil
}
func (stubMarkdown) Ready(context.Context) error { return nil }

type stubPdf struct{}

func (stubPdf) Convert(context.Context, string, *export.PdfOptions) ([]byte, string, error) {
	return []byte("%PDF"), "export.pdf", nil
}
func (stubPdf) Ready(context.Context) error { return nil }

type stubStore struct{}

func (stubStore) Upload(_ context.Context, _ []byte, name string) (string, time.Time, error) {
	return "https://storage.example/" + name, time.Now().Add(time.Hour), nil
}
func (stubStore) Ready(context.Context) error { return nil }

func newTestEngine(t *testing.T) (*gin.Engine, *export.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := cache.NewMemoryStore()
	cfg := &config.Export{
		MaxConcurrency:    4,
		ArtifactTTL:       time.Hour,
		StatusTTL:         time.Hour,
		LockTTL:           time.Minute,
		RetrievalTimeout:  time.Second,
		ConversionTimeout: time.Second,
		UploadTimeout:     time.Second,
	}
	gate, err := concurrency.NewGate(4)
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}

	orch := export.NewOrchestrator(
		cfg,
		cache.New(store, "t:artifact:"),
		cache.New(store, "t:inflight:"),
		lock.New(store, "t:lock:"),
		export.NewStatusTracker(cache.New(store, "t:status:"), cfg.StatusTTL),
		gate,
		export.Collaborators{
			Files:    &stubFiles{files: []export.File{{ID: "f1", Name: "a.md", Content: []byte("# A"), Size: 3, UpdatedAt: time.Now()}}},
			Markdown: stubMarkdown{},
			Pdf:      stubPdf{},
			Store:    stubStore{},
		},
	)

	engine := gin.New()
	engine.Use(Trace())
	NewExportHandler(orch).Register(engine)
	return engine, orch
}

func doRequest(engine *gin.Engine, method, path, userID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestExportEndpoint_SyncMarkdown(t *testing.T) {
	engine, _ := newTestEngine(t)

	w := doRequest(engine, http.MethodPost, "/export/projects/proj-1", "user-1",
		`{"format":"markdown","fileIds":["f1"]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", w.Code, w.Body.String())
	}

	var result export.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if result.Artifact == nil {
		t.Fatal("expected artifact in response")
	}
	if result.Artifact.FileName != "proj-1-export.md" {
		t.Errorf("got file name %q", result.Artifact.FileName)
	}
	if w.Header().Get("X-Trace-Id") == "" {
		t.Error("trace id header missing")
	}
}

func TestExportEndpoint_AsyncPdfAccepted(t *testing.T) {
	engine, orch := newTestEngine(t)

	w := doRequest(engine, http.MethodPost, "/export/projects/proj-1", "user-1",
		`{"format":"pdf"}`)

	if w.Code != http.StatusAccepted {
		t.Fatalf("got status %d, want 202: %s", w.Code, w.Body.String())
	}

	var result export.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if result.ExportID == "" {
		t.Fatal("async response must carry an export id")
	}
	if result.Status != export.StatePending {
		t.Errorf("got status %q, want PENDING", result.Status)
	}
	if result.EstimatedDurationMs <= 0 {
		t.Error("async response must carry a duration estimate")
	}

	// Poll until terminal so the background goroutine finishes before the
	// test does.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		status, err := orch.GetStatus(context.Background(), "user-1", result.ExportID)
		if err == nil && status.State.Terminal() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("export did not finish in time")
}

func TestExportEndpoint_MissingUser(t *testing.T) {
	engine, _ := newTestEngine(t)

	w := doRequest(engine, http.MethodPost, "/export/projects/proj-1", "",
		`{"format":"markdown"}`)

	if w.Code != http.StatusForbidden {
		t.Errorf("got status %d, want 403", w.Code)
	}
}

func TestExportEndpoint_InvalidFormat(t *testing.T) {
	engine, _ := newTestEngine(t)

	w := doRequest(engine, http.MethodPost, "/export/projects/proj-1", "user-1",
		`{"format":"docx"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "format") {
		t.Error("response should name the offending field")
	}
}

func TestExportEndpoint_MalformedBody(t *testing.T) {
	engine, _ := newTestEngine(t)

	w := doRequest(engine, http.MethodPost, "/export/projects/proj-1", "user-1", `{not json`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", w.Code)
	}
}

func TestExportEndpoint_ProjectIDMismatch(t *testing.T) {
	engine, _ := newTestEngine(t)

	w := doRequest(engine, http.MethodPost, "/export/projects/proj-1", "user-1",
		`{"projectId":"proj-2","format":"markdown"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", w.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	engine, _ := newTestEngine(t)

	// Start an async export to create a status record.
	w := doRequest(engine, http.MethodPost, "/export/projects/proj-1", "user-1", `{"format":"pdf"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("setup export failed with %d", w.Code)
	}
	var result export.Result
	_ = json.Unmarshal(w.Body.Bytes(), &result)

	w = doRequest(engine, http.MethodGet, "/export/status/"+result.ExportID, "user-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", w.Code, w.Body.String())
	}
	var status export.Status
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if status.ExportID != result.ExportID {
		t.Errorf("got export id %q, want %q", status.ExportID, result.ExportID)
	}
	if status.UserID != "" {
		t.Error("user id must not leak into status responses")
	}

	// Another user cannot read it.
	w = doRequest(engine, http.MethodGet, "/export/status/"+result.ExportID, "user-2", "")
	if w.Code != http.StatusForbidden {
		t.Errorf("got status %d, want 403", w.Code)
	}

	// Unknown ids read as 404.
	w = doRequest(engine, http.MethodGet, "/export/status/absent", "user-1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("got status %d, want 404", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	engine, _ := newTestEngine(t)

	w := doRequest(engine, http.MethodGet, "/export/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", w.Code, w.Body.String())
	}

	var status export.ServiceStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if status.Status != "healthy" {
		t.Errorf("got %q, want healthy", status.Status)
	}
	if len(status.Services) == 0 {
		t.Error("services map missing")
	}
}
