package http_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	llmhttp "github.com/ZGSQ-QIANG/scholarship/internal/adapter/llm/http"
	"github.com/stretchr/testify/assert"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestNewDefaultLogger(t *testing.T) {
	logger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, true)
	assert.NotNil(t, logger)
}

func TestDefaultLogger_RedactAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{
			name:     "full key",
			key:      "sk-1234567890abcdef",
			expected: "***cdef",
		},
		{
			name:     "short key",
			key:      "abc",
			expected: "***",
		},
		{
			name:     "empty key",
			key:      "",
			expected: "***",
		},
	}

	logger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, true)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, logger.RedactAPIKey(tt.key))
		})
	}
}

func TestDefaultLogger_RedactionDisabled(t *testing.T) {
	logger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, false)
	assert.Equal(t, "sk-1234567890abcdef", logger.RedactAPIKey("sk-1234567890abcdef"))
}

func TestDefaultLogger_LogResponseHuman(t *testing.T) {
	buf := captureLog(t)

	logger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, true)
	logger.LogResponse(context.Background(), llmhttp.ResponseLog{
		Provider:  "model",
		Model:     "glm-4.6v-flash",
		Timestamp: time.Now(),
		Duration:  1500 * time.Millisecond,
		ToolCalls: 2,
		TokensIn:  120,
		TokensOut: 80,
	})

	output := buf.String()
	assert.Contains(t, output, "[INFO]")
	assert.Contains(t, output, "model/glm-4.6v-flash")
	assert.Contains(t, output, "tool_calls=2")
}

func TestDefaultLogger_LogErrorHuman(t *testing.T) {
	buf := captureLog(t)

	logger := llmhttp.NewDefaultLogger(llmhttp.LogLevelError, llmhttp.LogFormatHuman, true)
	logger.LogError(context.Background(), llmhttp.ErrorLog{
		Provider:   "model",
		Model:      "glm-4.6v-flash",
		Timestamp:  time.Now(),
		Error:      errors.New("rate limited"),
		StatusCode: 429,
		Retryable:  true,
	})

	output := buf.String()
	assert.Contains(t, output, "[ERROR]")
	assert.Contains(t, output, "rate limited")
	assert.Contains(t, output, "retryable")
}

func TestDefaultLogger_LevelSuppressesDebug(t *testing.T) {
	buf := captureLog(t)

	logger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, true)
	logger.LogRequest(context.Background(), llmhttp.RequestLog{
		Provider: "model",
		Model:    "glm-4.6v-flash",
		APIKey:   "sk-secret",
	})

	assert.Empty(t, buf.String())
}

func TestDefaultLogger_RequestRedactsKey(t *testing.T) {
	buf := captureLog(t)

	logger := llmhttp.NewDefaultLogger(llmhttp.LogLevelDebug, llmhttp.LogFormatHuman, true)
	logger.LogRequest(context.Background(), llmhttp.RequestLog{
		Provider: "model",
		Model:    "glm-4.6v-flash",
		APIKey:   "sk-1234567890abcdef",
	})

	output := buf.String()
	assert.NotContains(t, output, "sk-1234567890abcdef")
	assert.Contains(t, output, "***cdef")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, llmhttp.LogLevelDebug, llmhttp.ParseLogLevel("debug"))
	assert.Equal(t, llmhttp.LogLevelError, llmhttp.ParseLogLevel("error"))
	assert.Equal(t, llmhttp.LogLevelInfo, llmhttp.ParseLogLevel("info"))
	assert.Equal(t, llmhttp.LogLevelInfo, llmhttp.ParseLogLevel("bogus"))
}

func TestParseLogFormat(t *testing.T) {
	assert.Equal(t, llmhttp.LogFormatJSON, llmhttp.ParseLogFormat("json"))
	assert.Equal(t, llmhttp.LogFormatHuman, llmhttp.ParseLogFormat("human"))
	assert.Equal(t, llmhttp.LogFormatHuman, llmhttp.ParseLogFormat(""))
}
