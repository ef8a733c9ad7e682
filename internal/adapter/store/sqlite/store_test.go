package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZGSQ-QIANG/scholarship/internal/adapter/store/sqlite"
	"github.com/ZGSQ-QIANG/scholarship/internal/domain"
	"github.com/ZGSQ-QIANG/scholarship/internal/store"
)

func setupTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	// Use in-memory database for testing
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err, "failed to create test store")

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func testFiles() []domain.FileRef {
	return []domain.FileRef{
		{FileID: "f1", Filename: "论文.pdf"},
		{FileID: "f2", Filename: "专利证书.png"},
	}
}

func TestStore_Create_Get(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "sub-123", testFiles())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, created.Status)

	got, err := s.Get(ctx, "sub-123")
	require.NoError(t, err)
	assert.Equal(t, "sub-123", got.ID)
	assert.Equal(t, testFiles(), got.Files)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Zero(t, got.Progress)
	assert.Empty(t, got.Results)
}

func TestStore_Get_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_Update_PartialFields(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "sub-123", testFiles())
	require.NoError(t, err)

	err = s.Update(ctx, "sub-123", store.Partial{
		Status:      store.StatusPtr(domain.StatusProcessing),
		Progress:    store.IntPtr(40),
		CurrentStep: store.StringPtr("正在处理文件 1/2: 论文.pdf"),
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, "sub-123")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, got.Status)
	assert.Equal(t, 40, got.Progress)
	assert.Equal(t, "正在处理文件 1/2: 论文.pdf", got.CurrentStep)
	// untouched columns survive the partial update
	assert.Equal(t, testFiles(), got.Files)
}

func TestStore_Update_Results(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "sub-123", testFiles())
	require.NoError(t, err)

	results := []domain.FileVerificationResult{
		{
			FileID:     "f1",
			Filename:   "论文.pdf",
			Severity:   domain.SeveritySuccess,
			Conclusion: "论文真实有效",
			Outcomes: []domain.VerifierOutcome{
				{Tool: "paper_verify", Status: domain.OutcomeSuccess, Message: "论文验证通过"},
			},
		},
	}

	err = s.Update(ctx, "sub-123", store.Partial{
		Status:   store.StatusPtr(domain.StatusCompleted),
		Progress: store.IntPtr(100),
		Results:  &results,
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, "sub-123")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, results, got.Results)
}

func TestStore_Update_NotFound(t *testing.T) {
	s := setupTestStore(t)

	err := s.Update(context.Background(), "missing", store.Partial{
		Progress: store.IntPtr(10),
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_Update_EmptyPartialIsNoop(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "sub-123", testFiles())
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, "sub-123", store.Partial{}))

	got, err := s.Get(ctx, "sub-123")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestStore_ListRecent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"sub-1", "sub-2", "sub-3"} {
		_, err := s.Create(ctx, id, testFiles())
		require.NoError(t, err)
	}

	subs, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, subs, 2)
}
