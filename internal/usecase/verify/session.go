package verify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ZGSQ-QIANG/scholarship/internal/domain"
)

// Prompt and fallback strings shown to (or produced for) end users. The
// system operates in Chinese.
const (
	systemPrompt     = "你是一个专业的文件内容识别并验证助手。"
	recognizePrompt  = "请识别这个文件的内容，并调用相应的验证工具。"
	concludePrompt   = "请根据以上验证工具返回的结果，用中文给出明确的结论：该材料是否真实有效，并简要说明理由。"
	fallbackText     = "无法识别文件内容"
	failedConclusion = "验证失败: %v"
)

// Phase identifies a sub-step inside one file's verification, reported to the
// progress callback so a polling caller sees forward motion within a file.
type Phase int

const (
	// PhaseRecognize is reported just before the recognition model call.
	PhaseRecognize Phase = iota
	// PhaseDispatch is reported when tool dispatch begins.
	PhaseDispatch
)

// PhaseFunc receives sub-step notifications. May be nil.
type PhaseFunc func(Phase)

// Session drives one document through the model: a recognition call with the
// tool registry offered, at most one tool-dispatch round, and a conclusion
// call with tools disabled. Severity is computed by Reconcile, never by the
// model. A session never propagates adapter failures to its caller; every
// failure mode collapses into the returned FileVerificationResult.
type Session struct {
	model    ModelClient
	registry *Registry
}

// NewSession creates a session over the given model client and tool registry.
func NewSession(model ModelClient, registry *Registry) *Session {
	return &Session{model: model, registry: registry}
}

// VerifyFile runs the full conversation for a single document image.
func (s *Session) VerifyFile(ctx context.Context, fileID, filename, imageB64 string, onPhase PhaseFunc) domain.FileVerificationResult {
	turns := []Turn{
		{Role: RoleSystem, Text: systemPrompt},
		{Role: RoleUser, Text: recognizePrompt, ImageB64: imageB64},
	}

	notify(onPhase, PhaseRecognize)

	reply, err := s.model.Chat(ctx, turns, s.registry.Schemas(), true)
	if err != nil {
		return errorResult(fileID, filename, err)
	}

	if len(reply.ToolCalls) == 0 {
		// The document could not be mapped to any verifiable claim.
		conclusion := reply.Text
		if conclusion == "" {
			conclusion = fallbackText
		}
		return domain.FileVerificationResult{
			FileID:     fileID,
			Filename:   filename,
			Severity:   domain.SeverityWarning,
			Conclusion: conclusion,
			Outcomes:   []domain.VerifierOutcome{},
		}
	}

	notify(onPhase, PhaseDispatch)

	turns = append(turns, Turn{Role: RoleAssistant, Text: reply.Text, ToolCalls: reply.ToolCalls})

	outcomes := make([]domain.VerifierOutcome, 0, len(reply.ToolCalls))
	for _, call := range reply.ToolCalls {
		outcome := s.dispatch(ctx, call)
		outcomes = append(outcomes, outcome)
		turns = append(turns, Turn{
			Role:       RoleTool,
			Text:       encodeOutcome(outcome),
			ToolCallID: call.ID,
		})
	}

	turns = append(turns, Turn{Role: RoleUser, Text: concludePrompt})

	final, err := s.model.Chat(ctx, turns, nil, false)
	if err != nil {
		return errorResult(fileID, filename, err)
	}

	return domain.FileVerificationResult{
		FileID:     fileID,
		Filename:   filename,
		Severity:   Reconcile(outcomes, final.Text),
		Conclusion: final.Text,
		Outcomes:   outcomes,
	}
}

// dispatch resolves and invokes one tool call, converting every failure mode
// into an error outcome.
func (s *Session) dispatch(ctx context.Context, call domain.ToolCallRequest) domain.VerifierOutcome {
	tool, ok := s.registry.Lookup(call.Name)
	if !ok {
		return domain.VerifierOutcome{
			Tool:     call.Name,
			Status:   domain.OutcomeError,
			Message:  fmt.Sprintf("无效的工具名: %s", call.Name),
			Verified: domain.False(),
		}
	}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return domain.VerifierOutcome{
				Tool:     call.Name,
				Status:   domain.OutcomeError,
				Message:  fmt.Sprintf("工具参数解析失败: %v", err),
				Verified: domain.False(),
			}
		}
	}

	outcome, err := tool.Verify(ctx, args)
	if err != nil {
		return domain.VerifierOutcome{
			Tool:     call.Name,
			Status:   domain.OutcomeError,
			Message:  fmt.Sprintf("工具执行异常: %v", err),
			Verified: domain.False(),
		}
	}
	if outcome == nil {
		return domain.VerifierOutcome{
			Tool:     call.Name,
			Status:   domain.OutcomeError,
			Message:  "工具执行未返回结果",
			Verified: domain.False(),
		}
	}

	result := *outcome
	if result.Tool == "" {
		result.Tool = call.Name
	}
	return result
}

func errorResult(fileID, filename string, err error) domain.FileVerificationResult {
	return domain.FileVerificationResult{
		FileID:     fileID,
		Filename:   filename,
		Severity:   domain.SeverityError,
		Conclusion: fmt.Sprintf(failedConclusion, err),
		Outcomes:   []domain.VerifierOutcome{},
	}
}

func encodeOutcome(outcome domain.VerifierOutcome) string {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Sprintf(`{"status":"error","message":"结果序列化失败: %v"}`, err)
	}
	return string(data)
}

func notify(fn PhaseFunc, p Phase) {
	if fn != nil {
		fn(p)
	}
}
