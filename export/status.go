package export

import (
	"context"
	"fmt"
	"time"

	"github.com/nibernar/project-service/cache"
)

// DefaultStaleAfter is the age past which a non-terminal status record is
// considered abandoned (crashed or stuck worker).
const DefaultStaleAfter = 5 * time.Minute

// StatusPatch is a partial update to a status record. Nil fields are left
// unchanged.
type StatusPatch struct {
	State                         *State
	Progress                      *int
	Message                       *string
	EstimatedTimeRemainingSeconds *int
}

// StatusTracker persists and reports the progress of export attempts using
// the cache as backing store. Records expire after the configured TTL; a
// missing record is indistinguishable from one that was never created.
type StatusTracker struct {
	records cache.Typed[Status]
	ttl     time.Duration
}

// NewStatusTracker creates a tracker over the given cache domain.
func NewStatusTracker(c *cache.Cache, ttl time.Duration) *StatusTracker {
	return &StatusTracker{
		records: cache.NewTyped[Status](c),
		ttl:     ttl,
	}
}

// Create registers a new export attempt in PENDING state.
func (t *StatusTracker) Create(ctx context.Context, exportID, userID string) (*Status, error) {
	status := &Status{
		ExportID:    exportID,
		UserID:      userID,
		State:       StatePending,
		Progress:    0,
		LastUpdated: time.Now(),
	}
	if err := t.records.Set(ctx, exportID, status, t.ttl); err != nil {
		return nil, fmt.Errorf("failed to create status record: %w", err)
	}
	return status, nil
}

// Update applies a patch to a status record. Terminal records are immutable:
// updates against them are silent no-ops returning the stored record, so a
// slow worker can never move a finished export backward. Progress and
// message follow last-writer-wins; only the owning orchestrator call updates
// a given export id.
func (t *StatusTracker) Update(ctx context.Context, exportID string, patch StatusPatch) (*Status, error) {
	status, err := t.records.Get(ctx, exportID)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, fmt.Errorf("status record %s not found", exportID)
	}
	if status.State.Terminal() {
		return status, nil
	}

	if patch.State != nil && patch.State.rank() >= status.State.rank() {
		status.State = *patch.State
	}
	if patch.Progress != nil {
		status.Progress = clampProgress(*patch.Progress)
	}
	if patch.Message != nil {
		status.Message = *patch.Message
	}
	if patch.EstimatedTimeRemainingSeconds != nil {
		status.EstimatedTimeRemainingSeconds = *patch.EstimatedTimeRemainingSeconds
	}
	status.LastUpdated = time.Now()

	if err := t.records.Set(ctx, exportID, status, t.ttl); err != nil {
		return nil, fmt.Errorf("failed to update status record: %w", err)
	}
	return status, nil
}

// Complete marks an export attempt COMPLETED, forcing progress to 100 and
// attaching the produced artifact so pollers receive the download location.
func (t *StatusTracker) Complete(ctx context.Context, exportID string, artifact *Artifact) error {
	status, err := t.records.Get(ctx, exportID)
	if err != nil {
		return err
	}
	if status == nil {
		return fmt.Errorf("status record %s not found", exportID)
	}
	if status.State.Terminal() {
		return nil
	}

	status.State = StateCompleted
	status.Progress = 100
	status.EstimatedTimeRemainingSeconds = 0
	status.Artifact = artifact
	status.LastUpdated = time.Now()
	return t.records.Set(ctx, exportID, status, t.ttl)
}

// Fail marks an export attempt FAILED with a user-safe error message.
func (t *StatusTracker) Fail(ctx context.Context, exportID, errorMessage string) error {
	status, err := t.records.Get(ctx, exportID)
	if err != nil {
		return err
	}
	if status == nil {
		return fmt.Errorf("status record %s not found", exportID)
	}
	if status.State.Terminal() {
		return nil
	}

	status.State = StateFailed
	status.Error = errorMessage
	status.EstimatedTimeRemainingSeconds = 0
	status.LastUpdated = time.Now()
	return t.records.Set(ctx, exportID, status, t.ttl)
}

// Get returns the status record, or nil when unknown or expired.
func (t *StatusTracker) Get(ctx context.Context, exportID string) (*Status, error) {
	return t.records.Get(ctx, exportID)
}

// IsStale reports whether a record's last update is older than maxAge,
// suggesting an abandoned or crashed worker. Callers may treat a stale
// PROCESSING record as failed.
func (t *StatusTracker) IsStale(status *Status, maxAge time.Duration) bool {
	if status == nil {
		return false
	}
	if maxAge <= 0 {
		maxAge = DefaultStaleAfter
	}
	return !status.State.Terminal() && time.Since(status.LastUpdated) > maxAge
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
