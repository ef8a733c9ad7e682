package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZGSQ-QIANG/scholarship/internal/domain"
	"github.com/ZGSQ-QIANG/scholarship/internal/store"
)

// ErrFileNotInSubmission is returned when a single-file re-verification names
// a file id the submission does not contain.
var ErrFileNotInSubmission = errors.New("file not part of submission")

// Step labels persisted to the job record while a submission advances.
const (
	stepPreparing = "准备中..."
	stepDone      = "验证完成"
)

// Tracker sequences a submission's files through claim-extraction sessions
// and owns all job-record mutations for the run. Files are processed strictly
// sequentially; progress reported for a submission is monotonically
// non-decreasing until a terminal state.
type Tracker struct {
	records store.Submissions
	files   FileSource
	raster  Rasterizer
	session *Session
	logger  Logger
}

// NewTracker wires a tracker from its collaborators.
func NewTracker(records store.Submissions, files FileSource, raster Rasterizer, session *Session) *Tracker {
	return &Tracker{records: records, files: files, raster: raster, session: session}
}

// WithLogger attaches a structured logger for run-level events.
func (t *Tracker) WithLogger(logger Logger) *Tracker {
	t.logger = logger
	return t
}

// Begin transitions a submission to processing if it is eligible to run.
// A submission already processing, or completed with non-empty results, is
// not restarted: the stored record is returned with started=false. The check
// is against the persisted status field, so two requests racing before either
// persists can both start; callers tolerate that narrow window.
func (t *Tracker) Begin(ctx context.Context, submissionID string) (domain.Submission, bool, error) {
	sub, err := t.records.Get(ctx, submissionID)
	if err != nil {
		return domain.Submission{}, false, err
	}

	if sub.Status == domain.StatusProcessing {
		return sub, false, nil
	}
	if sub.Status == domain.StatusCompleted && len(sub.Results) > 0 {
		return sub, false, nil
	}

	if err := t.records.Update(ctx, submissionID, store.Partial{
		Status:      store.StatusPtr(domain.StatusProcessing),
		Progress:    store.IntPtr(0),
		CurrentStep: store.StringPtr(stepPreparing),
	}); err != nil {
		return domain.Submission{}, false, err
	}

	sub.Status = domain.StatusProcessing
	sub.Progress = 0
	sub.CurrentStep = stepPreparing
	return sub, true, nil
}

// Run verifies every file of the submission in order and persists the final
// result list. Results for this invocation are all-or-nothing: any pipeline
// error moves the submission to failed with progress 0 and discards results
// computed so far. Per-file verification failures are not pipeline errors;
// they land in that file's result with severity error.
func (t *Tracker) Run(ctx context.Context, submissionID string) {
	sub, err := t.records.Get(ctx, submissionID)
	if err != nil {
		t.fail(ctx, submissionID, err)
		return
	}

	total := len(sub.Files)
	results := make([]domain.FileVerificationResult, 0, total)

	for i, ref := range sub.Files {
		idx := i + 1
		if err := t.progress(ctx, submissionID, pct(idx, 1.0, total),
			fmt.Sprintf("正在处理文件 %d/%d: %s", idx, total, ref.Filename)); err != nil {
			t.fail(ctx, submissionID, err)
			return
		}
		results = append(results, t.verifyOne(ctx, submissionID, ref, idx, total))
	}

	if err := t.records.Update(ctx, submissionID, store.Partial{
		Status:      store.StatusPtr(domain.StatusCompleted),
		Progress:    store.IntPtr(100),
		CurrentStep: store.StringPtr(stepDone),
		Results:     &results,
	}); err != nil {
		t.fail(ctx, submissionID, err)
		return
	}

	t.logInfo(ctx, "submission verification completed", map[string]any{
		"submission_id": submissionID,
		"files":         total,
	})
}

// BeginFile transitions a submission to processing for a single-file
// re-verification and returns the target file reference.
func (t *Tracker) BeginFile(ctx context.Context, submissionID, fileID string) (domain.FileRef, error) {
	sub, err := t.records.Get(ctx, submissionID)
	if err != nil {
		return domain.FileRef{}, err
	}

	ref, ok := findFile(sub.Files, fileID)
	if !ok {
		return domain.FileRef{}, ErrFileNotInSubmission
	}

	if err := t.records.Update(ctx, submissionID, store.Partial{
		Status:      store.StatusPtr(domain.StatusProcessing),
		Progress:    store.IntPtr(0),
		CurrentStep: store.StringPtr("正在验证文件: " + ref.Filename),
	}); err != nil {
		return domain.FileRef{}, err
	}
	return ref, nil
}

// RunFile re-verifies one file and merges its new result into the stored
// result list keyed by file id, leaving sibling results untouched.
func (t *Tracker) RunFile(ctx context.Context, submissionID, fileID string) {
	sub, err := t.records.Get(ctx, submissionID)
	if err != nil {
		t.fail(ctx, submissionID, err)
		return
	}

	ref, ok := findFile(sub.Files, fileID)
	if !ok {
		t.fail(ctx, submissionID, ErrFileNotInSubmission)
		return
	}

	result := t.verifyOne(ctx, submissionID, ref, 1, 1)
	merged := domain.MergeResult(sub.Results, result)

	if err := t.records.Update(ctx, submissionID, store.Partial{
		Status:      store.StatusPtr(domain.StatusCompleted),
		Progress:    store.IntPtr(100),
		CurrentStep: store.StringPtr(stepDone),
		Results:     &merged,
	}); err != nil {
		t.fail(ctx, submissionID, err)
	}
}

// verifyOne reads, rasterizes and verifies a single file. Sub-phases inside
// the file are reported at fractional offsets below the file's own index so
// a poller sees forward motion within one file: 0.7 before the file read,
// 0.5 before the recognition call, 0.3 when tool dispatch starts.
func (t *Tracker) verifyOne(ctx context.Context, submissionID string, ref domain.FileRef, idx, total int) domain.FileVerificationResult {
	_ = t.progress(ctx, submissionID, pct(idx, 0.7, total), "正在读取文件: "+ref.Filename)

	data, _, err := t.files.Get(ref.FileID)
	if err != nil {
		return errorResult(ref.FileID, ref.Filename, err)
	}

	imageB64, err := t.raster.ToImage(data, ref.Filename)
	if err != nil {
		return errorResult(ref.FileID, ref.Filename, err)
	}

	onPhase := func(p Phase) {
		switch p {
		case PhaseRecognize:
			_ = t.progress(ctx, submissionID, pct(idx, 0.5, total), "AI 正在识别: "+ref.Filename)
		case PhaseDispatch:
			_ = t.progress(ctx, submissionID, pct(idx, 0.3, total), "正在验证: "+ref.Filename)
		}
	}

	return t.session.VerifyFile(ctx, ref.FileID, ref.Filename, imageB64, onPhase)
}

func (t *Tracker) progress(ctx context.Context, submissionID string, progress int, step string) error {
	return t.records.Update(ctx, submissionID, store.Partial{
		Progress:    store.IntPtr(progress),
		CurrentStep: store.StringPtr(step),
	})
}

// fail moves the submission to failed, capturing the message verbatim. The
// update itself is best effort; there is nowhere left to report its failure.
func (t *Tracker) fail(ctx context.Context, submissionID string, cause error) {
	msg := cause.Error()
	_ = t.records.Update(ctx, submissionID, store.Partial{
		Status:      store.StatusPtr(domain.StatusFailed),
		Progress:    store.IntPtr(0),
		CurrentStep: store.StringPtr("错误: " + msg),
		Error:       store.StringPtr(msg),
	})
	t.logWarning(ctx, "submission verification failed", map[string]any{
		"submission_id": submissionID,
		"error":         msg,
	})
}

func (t *Tracker) logInfo(ctx context.Context, message string, fields map[string]any) {
	if t.logger != nil {
		t.logger.LogInfo(ctx, message, fields)
	}
}

func (t *Tracker) logWarning(ctx context.Context, message string, fields map[string]any) {
	if t.logger != nil {
		t.logger.LogWarning(ctx, message, fields)
	}
}

// pct maps file idx (1-based) minus a fractional offset onto the 0-100 scale.
func pct(idx int, offset float64, total int) int {
	if total <= 0 {
		return 0
	}
	p := (float64(idx) - offset) / float64(total) * 100
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return int(p)
}

func findFile(files []domain.FileRef, fileID string) (domain.FileRef, bool) {
	for _, f := range files {
		if f.FileID == fileID {
			return f, true
		}
	}
	return domain.FileRef{}, false
}
