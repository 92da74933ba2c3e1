package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nibernar/project-service/cache"
	"github.com/nibernar/project-service/concurrency"
	"github.com/nibernar/project-service/config"
	"github.com/nibernar/project-service/ecode"
	"github.com/nibernar/project-service/lock"
	"github.com/nibernar/project-service/logging/logger"
	"github.com/nibernar/project-service/nanoid"
	"github.com/nibernar/project-service/validation"
)

// lockOperation names the dedup lock domain on the shared store.
const lockOperation = "export"

// readinessTimeout bounds each collaborator probe in ServiceStatus.
const readinessTimeout = 2 * time.Second

// inflightRef maps a fingerprint to the export id of the execution that is
// currently producing its artifact, so lock-contended callers can be pointed
// at the existing status instead of starting redundant work.
type inflightRef struct {
	ExportID string `json:"exportId"`
}

// Orchestrator turns export requests into downloadable artifacts while
// deduplicating concurrent identical requests, caching recent artifacts,
// bounding system-wide concurrency, and tracking asynchronous progress.
type Orchestrator struct {
	cfg *config.Export

	artifactCache *cache.Cache
	artifacts     cache.Typed[Artifact]
	inflight      cache.Typed[inflightRef]
	locks         *lock.Manager
	tracker       *StatusTracker
	gate          *concurrency.Gate
	deps          Collaborators

	metrics Metrics
}

// NewOrchestrator wires the pipeline. artifactCache and inflightCache must
// be namespaced to their own domains; locks shares the store under the lock
// domain.
func NewOrchestrator(
	cfg *config.Export,
	artifactCache *cache.Cache,
	inflightCache *cache.Cache,
	locks *lock.Manager,
	tracker *StatusTracker,
	gate *concurrency.Gate,
	deps Collaborators,
) *Orchestrator {
	return &Orchestrator{
		cfg:           cfg,
		artifactCache: artifactCache,
		artifacts:     cache.NewTyped[Artifact](artifactCache),
		inflight:      cache.NewTyped[inflightRef](inflightCache),
		locks:         locks,
		tracker:       tracker,
		gate:          gate,
		deps:          deps,
	}
}

// Export produces either an immediate artifact (synchronous path) or an
// export id to poll (asynchronous path) for the given request.
func (o *Orchestrator) Export(ctx context.Context, userID string, req *Request) (*Result, error) {
	o.metrics.totalRequests.Add(1)

	if userID == "" {
		return nil, NewError(ecode.AccessDenied, "missing caller identity", nil)
	}
	if errs := validation.ValidateStruct(req); len(errs) > 0 {
		return nil, NewValidationError(errs)
	}

	fingerprint := Fingerprint(userID, req)

	// Fast path: a fresh cached artifact answers before any pipeline work.
	if artifact, err := o.artifacts.Get(ctx, fingerprint); err == nil && artifact.Fresh(time.Now()) {
		o.metrics.cacheHits.Add(1)
		logger.Debugf(ctx, "export cache hit: project=%s format=%s", req.ProjectID, req.Format)
		return &Result{Artifact: artifact, Status: StateCompleted}, nil
	}
	o.metrics.cacheMisses.Add(1)

	complexity := Classify(req)

	// Dedup lock: exactly one execution per fingerprint may be in flight.
	// A lock backend failure degrades to no deduplication; the artifact
	// itself is still produced correctly.
	var token string
	if t, acquired, err := o.locks.Acquire(ctx, lockOperation, fingerprint, o.cfg.LockTTL); err != nil {
		logger.Warnf(ctx, "dedup lock unavailable, proceeding without deduplication: %v", err)
	} else if !acquired {
		o.metrics.deduplicated.Add(1)
		if ref, err := o.inflight.Get(ctx, fingerprint); err == nil && ref != nil {
			return &Result{
				ExportID:            ref.ExportID,
				Status:              StatePending,
				EstimatedDurationMs: o.estimateDuration(req),
				Deduplicated:        true,
				Async:               true,
			}, nil
		}
		return nil, NewError(ecode.RateLimited, "an identical export is already in progress, retry shortly", nil)
	} else {
		token = t
	}

	// Concurrency gate: cache hits and lock-contended callers never reach
	// this point, so only executing pipelines consume slots.
	if !o.gate.TryAcquire() {
		o.metrics.rateLimited.Add(1)
		o.releaseLock(ctx, fingerprint, token)
		return nil, NewError(ecode.RateLimited, "", nil)
	}

	exportID := nanoid.String()
	if _, err := o.tracker.Create(ctx, exportID, userID); err != nil {
		logger.Warnf(ctx, "failed to create status record for export %s: %v", exportID, err)
	}
	if token != "" {
		if err := o.inflight.Set(ctx, fingerprint, &inflightRef{ExportID: exportID}, o.cfg.LockTTL); err != nil {
			logger.Warnf(ctx, "failed to record in-flight export %s: %v", exportID, err)
		}
	}

	if complexity.Async() {
		// The caller disconnecting must not stop the pipeline; its result
		// is still cached for the next lookup.
		bg := context.WithoutCancel(ctx)
		go func() {
			_, _ = o.runPipeline(bg, userID, req, fingerprint, exportID, token, complexity)
		}()
		return &Result{
			ExportID:            exportID,
			Status:              StatePending,
			EstimatedDurationMs: o.estimateDuration(req),
			Async:               true,
		}, nil
	}

	artifact, err := o.runPipeline(ctx, userID, req, fingerprint, exportID, token, complexity)
	if err != nil {
		return nil, err
	}
	return &Result{Artifact: artifact, Status: StateCompleted}, nil
}

// runPipeline executes retrieval, generation, optional conversion, and
// upload. The gate slot, dedup lock, and in-flight marker are always
// released, success or failure.
func (o *Orchestrator) runPipeline(ctx context.Context, userID string, req *Request, fingerprint, exportID, token string, complexity Complexity) (*Artifact, error) {
	defer o.gate.Release()
	defer func() {
		// Releases must run even when the request context is done.
		cleanupCtx := context.WithoutCancel(ctx)
		o.releaseLock(cleanupCtx, fingerprint, token)
		if token != "" {
			if err := o.inflight.Delete(cleanupCtx, fingerprint); err != nil {
				logger.Debugf(cleanupCtx, "failed to clear in-flight marker: %v", err)
			}
		}
	}()

	remaining := int(o.estimateDuration(req) / 1000)
	o.advance(ctx, exportID, StateProcessing, 5, "retrieving project files", &remaining)

	retrievalCtx, cancel := context.WithTimeout(ctx, o.cfg.RetrievalTimeout)
	files, failed, err := o.deps.Files.GetMany(retrievalCtx, req.ProjectID, req.FileIDs)
	cancel()
	if err != nil {
		return nil, o.fail(ctx, exportID, userID, req, complexity, 0, classify(err, "file retrieval"))
	}
	if len(failed) > 0 {
		logger.Warnf(ctx, "export %s: %d of %d requested files were not retrievable", exportID, len(failed), len(failed)+len(files))
	}
	if len(files) == 0 {
		return nil, o.fail(ctx, exportID, userID, req, complexity, 0,
			NewError(ecode.NotFound, "no exportable content found", nil))
	}

	o.advance(ctx, exportID, StateProcessing, 40, "generating combined document", nil)

	content, err := o.deps.Markdown.Combine(ctx, files, CombineOptions{
		ProjectID:              req.ProjectID,
		IncludeMetadata:        req.IncludeMetadata,
		IncludeTableOfContents: req.PdfOptions != nil && req.PdfOptions.IncludeTableOfContents,
	})
	if err != nil {
		return nil, o.fail(ctx, exportID, userID, req, complexity, len(files), classify(err, "content generation"))
	}

	data := []byte(content.Content)
	fileName := content.FileName

	if req.Format == FormatPDF {
		o.advance(ctx, exportID, StateProcessing, 60, "converting document to PDF", nil)
		conversionCtx, cancel := context.WithTimeout(ctx, o.cfg.ConversionTimeout)
		data, fileName, err = o.deps.Pdf.Convert(conversionCtx, content.Content, req.PdfOptions)
		cancel()
		if err != nil {
			return nil, o.fail(ctx, exportID, userID, req, complexity, len(files), classify(err, "pdf conversion"))
		}
	}

	o.advance(ctx, exportID, StateProcessing, 80, "uploading artifact", nil)

	uploadCtx, cancel := context.WithTimeout(ctx, o.cfg.UploadTimeout)
	url, expiresAt, err := o.deps.Store.Upload(uploadCtx, data, fileName)
	cancel()
	if err != nil {
		return nil, o.fail(ctx, exportID, userID, req, complexity, len(files), classify(err, "artifact upload"))
	}

	sum := sha256.Sum256(data)
	artifact := &Artifact{
		DownloadURL: url,
		FileName:    fileName,
		FileSize:    int64(len(data)),
		Format:      req.Format,
		ExpiresAt:   expiresAt,
		ContentHash: hex.EncodeToString(sum[:]),
	}

	// The cached entry must never outlive the signed URL.
	ttl := o.cfg.ArtifactTTL
	if until := time.Until(expiresAt); until > 0 && until < ttl {
		ttl = until
	}
	if err := o.artifacts.Set(ctx, fingerprint, artifact, ttl); err != nil {
		logger.Warnf(ctx, "failed to cache export artifact: %v", err)
	}

	if err := o.tracker.Complete(ctx, exportID, artifact); err != nil {
		logger.Warnf(ctx, "failed to finalize status for export %s: %v", exportID, err)
	}
	o.metrics.completed.Add(1)

	logger.WithFields(ctx, logrus.Fields{
		"project_id": req.ProjectID,
		"user_id":    userID,
		"format":     req.Format,
		"complexity": complexity,
		"file_count": len(files),
		"file_size":  artifact.FileSize,
	}).Info("export completed")

	return artifact, nil
}

// GetStatus returns the status of an export attempt, enforcing ownership.
func (o *Orchestrator) GetStatus(ctx context.Context, userID, exportID string) (*Status, error) {
	status, err := o.tracker.Get(ctx, exportID)
	if err != nil {
		return nil, NewError(ecode.ServerErr, "", err)
	}
	if status == nil {
		return nil, NewError(ecode.NotFound, "unknown or expired export id", nil)
	}
	if status.UserID != userID {
		return nil, NewError(ecode.AccessDenied, "", nil)
	}
	if status.State == StateProcessing && o.tracker.IsStale(status, DefaultStaleAfter) {
		status.Message = "no recent progress; the operation may have been abandoned"
	}
	return status, nil
}

// ServiceStatus aggregates collaborator readiness and pipeline occupancy
// into an overall verdict.
func (o *Orchestrator) ServiceStatus(ctx context.Context) *ServiceStatus {
	services := map[string]ServiceHealth{
		"fileRetrieval":     o.probe(ctx, o.deps.Files.Ready),
		"contentGeneration": o.probe(ctx, o.deps.Markdown.Ready),
		"pdfConversion":     o.probe(ctx, o.deps.Pdf.Ready),
		"cache":             o.probe(ctx, o.artifactCache.Ping),
	}

	down := 0
	for _, s := range services {
		if !s.Ready {
			down++
		}
	}

	var status string
	switch {
	case down == len(services):
		status = "unhealthy"
	case !services["fileRetrieval"].Ready || !services["contentGeneration"].Ready:
		// Nothing can be exported without content.
		status = "unhealthy"
	case down > 0 || o.gate.Available() == 0:
		status = "degraded"
	default:
		status = "healthy"
	}

	return &ServiceStatus{
		Status:   status,
		Services: services,
		Metrics: HealthMetrics{
			ActiveExports:  o.gate.Active(),
			QueuedExports:  0, // requests beyond the cap are rejected, never queued
			MaxConcurrency: o.gate.Max(),
		},
	}
}

// Stats returns a snapshot of orchestrator counters.
func (o *Orchestrator) Stats() MetricsSnapshot {
	return o.metrics.Snapshot()
}

func (o *Orchestrator) probe(ctx context.Context, ready func(context.Context) error) ServiceHealth {
	probeCtx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()
	if err := ready(probeCtx); err != nil {
		return ServiceHealth{Ready: false, Error: err.Error()}
	}
	return ServiceHealth{Ready: true}
}

// advance applies a best-effort status update; tracker trouble never fails
// the pipeline.
func (o *Orchestrator) advance(ctx context.Context, exportID string, state State, progress int, message string, remainingSeconds *int) {
	patch := StatusPatch{State: &state, Progress: &progress, Message: &message}
	if remainingSeconds != nil {
		patch.EstimatedTimeRemainingSeconds = remainingSeconds
	}
	if _, err := o.tracker.Update(ctx, exportID, patch); err != nil {
		logger.Debugf(ctx, "failed to update status for export %s: %v", exportID, err)
	}
}

// fail finalizes a pipeline failure: terminal status, metrics, and a log
// entry with full diagnostic context but never raw file content.
func (o *Orchestrator) fail(ctx context.Context, exportID, userID string, req *Request, complexity Complexity, fileCount int, xerr *Error) *Error {
	o.metrics.failed.Add(1)
	if err := o.tracker.Fail(ctx, exportID, xerr.Message); err != nil {
		logger.Debugf(ctx, "failed to mark export %s failed: %v", exportID, err)
	}
	logger.WithFields(ctx, logrus.Fields{
		"project_id": req.ProjectID,
		"user_id":    userID,
		"format":     req.Format,
		"complexity": complexity,
		"file_count": fileCount,
		"code":       xerr.Code,
	}).Errorf("export failed: %v", xerr)
	return xerr
}

func (o *Orchestrator) releaseLock(ctx context.Context, fingerprint, token string) {
	if token == "" {
		return
	}
	if _, err := o.locks.Release(ctx, lockOperation, fingerprint, token); err != nil {
		logger.Warnf(ctx, "failed to release dedup lock: %v", err)
	}
}

// estimateDuration is a rough heuristic used for the async-path response and
// the initial time-remaining hint.
func (o *Orchestrator) estimateDuration(req *Request) int64 {
	fileCount := len(req.FileIDs)
	if fileCount == 0 {
		fileCount = 15 // whole project, count unknown
	}
	estimate := int64(1500 + 100*fileCount)
	if req.Format == FormatPDF {
		estimate += int64(8000 + 200*fileCount)
	}
	return estimate
}
