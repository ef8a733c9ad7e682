package http

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
)

// Logger provides structured logging for outbound model and registry calls.
type Logger interface {
	// LogRequest logs an outgoing call (API key redacted).
	LogRequest(ctx context.Context, req RequestLog)

	// LogResponse logs a completed call with timing information.
	LogResponse(ctx context.Context, resp ResponseLog)

	// LogError logs a failed call.
	LogError(ctx context.Context, err ErrorLog)

	// LogInfo and LogWarning log pipeline events with structured fields.
	LogInfo(ctx context.Context, message string, fields map[string]any)
	LogWarning(ctx context.Context, message string, fields map[string]any)
}

// RequestLog describes an outgoing call.
type RequestLog struct {
	Provider     string
	Model        string
	Timestamp    time.Time
	Turns        int  // conversation turns in the request
	ToolsOffered int  // tool schemas attached, 0 when tools are disabled
	HasImage     bool // request carries an inline document image
	APIKey       string
}

// ResponseLog describes a completed call.
type ResponseLog struct {
	Provider     string
	Model        string
	Timestamp    time.Time
	Duration     time.Duration
	ToolCalls    int // tool calls requested by the model
	TokensIn     int
	TokensOut    int
	FinishReason string
}

// ErrorLog describes a failed call.
type ErrorLog struct {
	Provider   string
	Model      string
	Timestamp  time.Time
	Duration   time.Duration
	Error      error
	ErrorType  ErrorType
	StatusCode int
	Retryable  bool
}

// LogLevel defines logging verbosity.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelError
)

// LogFormat defines the output format.
type LogFormat int

const (
	LogFormatHuman LogFormat = iota
	LogFormatJSON
)

// ParseLogLevel maps a config string to a LogLevel, defaulting to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// ParseLogFormat maps a config string to a LogFormat, defaulting to human.
func ParseLogFormat(s string) LogFormat {
	if strings.EqualFold(s, "json") {
		return LogFormatJSON
	}
	return LogFormatHuman
}

// DefaultLogger writes structured logs via the standard log package.
type DefaultLogger struct {
	level      LogLevel
	redactKeys bool
	format     LogFormat
}

// NewDefaultLogger creates a logger with the specified configuration.
func NewDefaultLogger(level LogLevel, format LogFormat, redactKeys bool) *DefaultLogger {
	return &DefaultLogger{level: level, redactKeys: redactKeys, format: format}
}

// LogRequest logs an outgoing call at debug level.
func (l *DefaultLogger) LogRequest(ctx context.Context, req RequestLog) {
	if l.level > LogLevelDebug {
		return
	}

	redacted := l.RedactAPIKey(req.APIKey)
	if l.format == LogFormatJSON {
		log.Printf(`{"level":"debug","type":"request","provider":"%s","model":"%s","timestamp":"%s","turns":%d,"tools":%d,"has_image":%t,"api_key":"%s"}`,
			req.Provider, req.Model, req.Timestamp.Format(time.RFC3339),
			req.Turns, req.ToolsOffered, req.HasImage, redacted)
	} else {
		log.Printf("[DEBUG] %s/%s: request sent (turns=%d, tools=%d, image=%t, key=%s)",
			req.Provider, req.Model, req.Turns, req.ToolsOffered, req.HasImage, redacted)
	}
}

// LogResponse logs a completed call at info level.
func (l *DefaultLogger) LogResponse(ctx context.Context, resp ResponseLog) {
	if l.level > LogLevelInfo {
		return
	}

	if l.format == LogFormatJSON {
		log.Printf(`{"level":"info","type":"response","provider":"%s","model":"%s","timestamp":"%s","duration_ms":%d,"tool_calls":%d,"tokens_in":%d,"tokens_out":%d,"finish_reason":"%s"}`,
			resp.Provider, resp.Model, resp.Timestamp.Format(time.RFC3339),
			resp.Duration.Milliseconds(), resp.ToolCalls, resp.TokensIn, resp.TokensOut, resp.FinishReason)
	} else {
		log.Printf("[INFO] %s/%s: response received (duration=%.1fs, tool_calls=%d, tokens=%d/%d)",
			resp.Provider, resp.Model, resp.Duration.Seconds(),
			resp.ToolCalls, resp.TokensIn, resp.TokensOut)
	}
}

// LogError logs a failed call.
func (l *DefaultLogger) LogError(ctx context.Context, e ErrorLog) {
	if l.level > LogLevelError {
		return
	}

	retryableStr := "non-retryable"
	if e.Retryable {
		retryableStr = "retryable"
	}

	if l.format == LogFormatJSON {
		log.Printf(`{"level":"error","type":"error","provider":"%s","model":"%s","timestamp":"%s","duration_ms":%d,"error":"%s","status_code":%d,"retryable":%t}`,
			e.Provider, e.Model, e.Timestamp.Format(time.RFC3339),
			e.Duration.Milliseconds(), e.Error.Error(), e.StatusCode, e.Retryable)
	} else {
		log.Printf("[ERROR] %s/%s: %s (%s, status=%d)",
			e.Provider, e.Model, e.Error.Error(), retryableStr, e.StatusCode)
	}
}

// LogInfo logs a pipeline event at info level.
func (l *DefaultLogger) LogInfo(ctx context.Context, message string, fields map[string]any) {
	if l.level > LogLevelInfo {
		return
	}
	log.Printf("[INFO] %s%s", message, formatFields(fields))
}

// LogWarning logs a pipeline event at warning level. Warnings are emitted at
// all configured levels except error-only.
func (l *DefaultLogger) LogWarning(ctx context.Context, message string, fields map[string]any) {
	if l.level > LogLevelInfo {
		return
	}
	log.Printf("[WARN] %s%s", message, formatFields(fields))
}

// RedactAPIKey shows only the last 4 characters of an API key.
func (l *DefaultLogger) RedactAPIKey(key string) string {
	if !l.redactKeys {
		return key
	}
	if len(key) <= 4 {
		return "***"
	}
	return "***" + key[len(key)-4:]
}

func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for k, v := range fields {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(strings.TrimSpace(strings.ReplaceAll(toString(v), "\n", " ")))
	}
	return b.String()
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return t.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}

var urlSecretPattern = regexp.MustCompile(`(key|api_key|apikey|token|secret)=[^&\s]+`)

// RedactURLSecrets redacts credential query parameters from URLs embedded in
// error messages before they reach logs or users.
func RedactURLSecrets(text string) string {
	return urlSecretPattern.ReplaceAllString(text, "$1=***")
}
