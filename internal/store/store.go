package store

import (
	"context"
	"errors"

	"github.com/ZGSQ-QIANG/scholarship/internal/domain"
)

// ErrNotFound is returned when a submission id has no record.
var ErrNotFound = errors.New("submission not found")

// Partial carries a partial update to a submission record. Nil fields are
// left unchanged; non-nil fields overwrite the stored value. This is the only
// mutation surface the pipeline has.
type Partial struct {
	Status      *domain.SubmissionStatus
	Progress    *int
	CurrentStep *string
	Files       *[]domain.FileRef
	Results     *[]domain.FileVerificationResult
	Error       *string
}

// Submissions defines the durable job-record store consumed by the
// verification pipeline. Implementations must treat Update as key-value
// state with partial-update semantics.
type Submissions interface {
	Create(ctx context.Context, id string, files []domain.FileRef) (domain.Submission, error)
	Get(ctx context.Context, id string) (domain.Submission, error)
	Update(ctx context.Context, id string, partial Partial) error
	ListRecent(ctx context.Context, limit int) ([]domain.Submission, error)
	Close() error
}

// StatusPtr returns a pointer to s, for building Partial values.
func StatusPtr(s domain.SubmissionStatus) *domain.SubmissionStatus { return &s }

// IntPtr returns a pointer to n, for building Partial values.
func IntPtr(n int) *int { return &n }

// StringPtr returns a pointer to s, for building Partial values.
func StringPtr(s string) *string { return &s }
