package export

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
)

// fingerprintPayload is the canonical form digested into a fingerprint.
// Field order is fixed by the struct; file ids are sorted and deduplicated
// so selection order never changes the identity of the work.
type fingerprintPayload struct {
	UserID          string      `json:"userId"`
	ProjectID       string      `json:"projectId"`
	Format          Format      `json:"format"`
	FileIDs         []string    `json:"fileIds"`
	IncludeMetadata bool        `json:"includeMetadata"`
	PdfOptions      *PdfOptions `json:"pdfOptions"`
}

// Fingerprint computes the deterministic digest identifying an export
// request's semantic content. Two requests with the same fingerprint are the
// same unit of work for caching and deduplication. The digest is scoped by
// user id so artifacts never leak across users.
func Fingerprint(userID string, req *Request) string {
	fileIDs := slices.Clone(req.FileIDs)
	slices.Sort(fileIDs)
	fileIDs = slices.Compact(fileIDs)
	if fileIDs == nil {
		fileIDs = []string{}
	}

	// PDF options only shape the output for PDF exports; ignore them
	// otherwise so a stray options block does not split the cache.
	var pdfOpts *PdfOptions
	if req.Format == FormatPDF && req.PdfOptions != nil {
		opts := *req.PdfOptions
		pdfOpts = &opts
	}

	payload := fingerprintPayload{
		UserID:          userID,
		ProjectID:       req.ProjectID,
		Format:          req.Format,
		FileIDs:         fileIDs,
		IncludeMetadata: req.IncludeMetadata,
		PdfOptions:      pdfOpts,
	}

	// Marshal cannot fail on this payload shape.
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
