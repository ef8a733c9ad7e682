package domain

import "time"

// Severity is the three-level verdict attached to a file's overall verification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// SubmissionStatus tracks a submission through its lifecycle.
type SubmissionStatus string

const (
	StatusPending    SubmissionStatus = "pending"
	StatusProcessing SubmissionStatus = "processing"
	StatusCompleted  SubmissionStatus = "completed"
	StatusFailed     SubmissionStatus = "failed"
)

// Verifier outcome statuses. Each verifier uses a subset of this vocabulary;
// anything outside SeverityError/SeverityWarning semantics counts as success
// during reconciliation.
const (
	OutcomeSuccess      = "success"
	OutcomeWarning      = "warning"
	OutcomeFailed       = "failed"
	OutcomeInvalid      = "invalid"
	OutcomeNameMismatch = "name_mismatch"
	OutcomeError        = "error"
)

// FileRef identifies one uploaded file inside a submission.
type FileRef struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
}

// VerifierOutcome is the typed result of one verifier adapter invocation.
//
// Verified, when present, takes precedence over Status during severity
// computation: an explicit false always escalates to error.
type VerifierOutcome struct {
	Tool     string         `json:"tool,omitempty"`
	Status   string         `json:"status"`
	Message  string         `json:"message"`
	Detail   map[string]any `json:"detail,omitempty"`
	Verified *bool          `json:"verified,omitempty"`
}

// False returns a pointer to a false bool for the Verified field.
func False() *bool {
	v := false
	return &v
}

// FileVerificationResult is the per-file verdict: the reconciled severity,
// the model's conclusion text, and the raw verifier outcomes it rests on.
type FileVerificationResult struct {
	FileID     string            `json:"file_id"`
	Filename   string            `json:"filename"`
	Severity   Severity          `json:"status"`
	Conclusion string            `json:"conclusion"`
	Outcomes   []VerifierOutcome `json:"tool_results"`
}

// Submission is a batch of files undergoing verification as one job.
// Progress is a 0-100 integer and must be monotonically non-decreasing
// until the submission reaches a terminal status.
type Submission struct {
	ID          string                   `json:"id"`
	Files       []FileRef                `json:"files"`
	Status      SubmissionStatus         `json:"status"`
	Progress    int                      `json:"progress"`
	CurrentStep string                   `json:"current_step"`
	Results     []FileVerificationResult `json:"results,omitempty"`
	Error       string                   `json:"error,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// ToolCallRequest is one tool invocation extracted from a model response.
// Arguments is the raw JSON argument string exactly as the model produced it.
type ToolCallRequest struct {
	ID        string
	Name      string
	Arguments string
}

// MergeResult replaces the entry for result.FileID in results, keeping all
// sibling entries untouched. A file id not yet present is appended. The
// returned slice is a copy; the input is never mutated.
func MergeResult(results []FileVerificationResult, result FileVerificationResult) []FileVerificationResult {
	merged := make([]FileVerificationResult, len(results))
	copy(merged, results)
	for i, existing := range merged {
		if existing.FileID == result.FileID {
			merged[i] = result
			return merged
		}
	}
	return append(merged, result)
}
