package observability

import (
	"context"

	llmhttp "github.com/ZGSQ-QIANG/scholarship/internal/adapter/llm/http"
	"github.com/ZGSQ-QIANG/scholarship/internal/usecase/verify"
)

// PipelineLogger adapts llmhttp.Logger to the verify.Logger interface.
// This allows the verification tracker to use the same structured logging
// infrastructure as the model HTTP client.
type PipelineLogger struct {
	logger llmhttp.Logger
}

// NewPipelineLogger creates a new pipeline logger adapter.
func NewPipelineLogger(logger llmhttp.Logger) verify.Logger {
	return &PipelineLogger{logger: logger}
}

// LogInfo logs an informational pipeline event with structured fields.
func (l *PipelineLogger) LogInfo(ctx context.Context, message string, fields map[string]any) {
	l.logger.LogInfo(ctx, message, fields)
}

// LogWarning logs a warning with structured fields.
func (l *PipelineLogger) LogWarning(ctx context.Context, message string, fields map[string]any) {
	l.logger.LogWarning(ctx, message, fields)
}
