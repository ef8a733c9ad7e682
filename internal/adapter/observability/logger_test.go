package observability_test

import (
	"bytes"
	"context"
	"log"
	"os"
	"testing"

	llmhttp "github.com/ZGSQ-QIANG/scholarship/internal/adapter/llm/http"
	"github.com/ZGSQ-QIANG/scholarship/internal/adapter/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPipelineLogger(t *testing.T) {
	llmLogger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, true)
	pipelineLogger := observability.NewPipelineLogger(llmLogger)

	require.NotNil(t, pipelineLogger)
}

func TestPipelineLogger_LogWarning(t *testing.T) {
	// Capture log output
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	llmLogger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, true)
	pipelineLogger := observability.NewPipelineLogger(llmLogger)

	ctx := context.Background()
	pipelineLogger.LogWarning(ctx, "submission verification failed", map[string]any{
		"submission_id": "sub-123",
		"error":         "store unavailable",
	})

	output := buf.String()
	assert.Contains(t, output, "[WARN]")
	assert.Contains(t, output, "submission verification failed")
	assert.Contains(t, output, "submission_id=sub-123")
	assert.Contains(t, output, "error=store unavailable")
}

func TestPipelineLogger_LogInfo(t *testing.T) {
	// Capture log output
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	llmLogger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, true)
	pipelineLogger := observability.NewPipelineLogger(llmLogger)

	ctx := context.Background()
	pipelineLogger.LogInfo(ctx, "submission verification completed", map[string]any{
		"submission_id": "sub-123",
		"files":         3,
	})

	output := buf.String()
	assert.Contains(t, output, "[INFO]")
	assert.Contains(t, output, "submission verification completed")
	assert.Contains(t, output, "submission_id=sub-123")
	assert.Contains(t, output, "files=3")
}

func TestPipelineLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	llmLogger := llmhttp.NewDefaultLogger(llmhttp.LogLevelError, llmhttp.LogFormatHuman, true)
	pipelineLogger := observability.NewPipelineLogger(llmLogger)

	pipelineLogger.LogInfo(context.Background(), "should be suppressed", nil)

	assert.Empty(t, buf.String())
}
