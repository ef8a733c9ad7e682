package verify

import (
	"context"
	"encoding/json"

	"github.com/ZGSQ-QIANG/scholarship/internal/domain"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one entry in the conversation log sent to the model. The log is an
// explicit value passed between model invocations; there is no hidden session
// state, which keeps the protocol replayable in tests.
type Turn struct {
	Role Role
	Text string

	// ImageB64 carries an inline base64 JPEG for multimodal user turns.
	ImageB64 string

	// ToolCalls are set on assistant turns that requested tool invocations.
	ToolCalls []domain.ToolCallRequest

	// ToolCallID correlates a tool turn with the assistant call it answers.
	ToolCallID string
}

// ModelReply is the model's answer to one chat call: free text, tool-call
// requests, or both.
type ModelReply struct {
	Text      string
	ToolCalls []domain.ToolCallRequest
}

// ToolSchema declares one tool to the model.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ModelClient is the chat-completion surface the session consumes. When
// allowTools is false the call must not offer any tools to the model.
type ModelClient interface {
	Chat(ctx context.Context, turns []Turn, tools []ToolSchema, allowTools bool) (ModelReply, error)
}

// Tool is one verifier adapter as exposed to the model. Verify receives the
// decoded argument map from a tool call; implementations must ignore
// unexpected fields rather than fail on them.
type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage
	Verify(ctx context.Context, args map[string]any) (*domain.VerifierOutcome, error)
}

// Rasterizer reduces an uploaded document to a single representative raster
// image, returned as base64 JPEG.
type Rasterizer interface {
	ToImage(data []byte, filename string) (string, error)
}

// FileSource provides read access to uploaded file bytes.
type FileSource interface {
	Get(id string) (data []byte, filename string, err error)
}

// Logger receives structured pipeline events from the tracker. May be nil.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]any)
	LogWarning(ctx context.Context, message string, fields map[string]any)
}
