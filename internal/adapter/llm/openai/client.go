// Package openai adapts an OpenAI-compatible chat-completion endpoint to the
// pipeline's ModelClient interface. The upstream only needs to speak the
// OpenAI wire protocol with tool calling and multimodal user turns; the
// GLM-style vision models used in production are reached through a custom
// base URL.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	llmhttp "github.com/ZGSQ-QIANG/scholarship/internal/adapter/llm/http"
	"github.com/ZGSQ-QIANG/scholarship/internal/domain"
	"github.com/ZGSQ-QIANG/scholarship/internal/usecase/verify"
)

const (
	providerName   = "model"
	defaultTimeout = 60 * time.Second
)

// Config configures the model client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string        // empty means the OpenAI default
	Timeout time.Duration // per-call deadline, defaults to 60s
	Retry   llmhttp.RetryConfig
	Logger  llmhttp.Logger
}

// Client implements verify.ModelClient over go-openai.
type Client struct {
	api     *goopenai.Client
	model   string
	apiKey  string
	timeout time.Duration
	retry   llmhttp.RetryConfig
	logger  llmhttp.Logger
}

// New creates a model client from cfg.
func New(cfg Config) *Client {
	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retry := cfg.Retry
	if retry.MaxRetries == 0 && retry.InitialBackoff == 0 {
		retry = llmhttp.DefaultRetryConfig()
	}

	return &Client{
		api:     goopenai.NewClientWithConfig(apiCfg),
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		timeout: timeout,
		retry:   retry,
		logger:  cfg.Logger,
	}
}

// Chat sends the conversation log to the model. When allowTools is false no
// tool schemas are attached, forcing a plain-text reply.
func (c *Client) Chat(ctx context.Context, turns []verify.Turn, tools []verify.ToolSchema, allowTools bool) (verify.ModelReply, error) {
	req := goopenai.ChatCompletionRequest{
		Model:    c.model,
		Messages: buildMessages(turns),
	}
	if allowTools && len(tools) > 0 {
		req.Tools = buildTools(tools)
		req.ToolChoice = "auto"
	}

	hasImage := false
	for _, turn := range turns {
		if turn.ImageB64 != "" {
			hasImage = true
			break
		}
	}
	if c.logger != nil {
		c.logger.LogRequest(ctx, llmhttp.RequestLog{
			Provider:     providerName,
			Model:        c.model,
			Timestamp:    time.Now(),
			Turns:        len(turns),
			ToolsOffered: len(req.Tools),
			HasImage:     hasImage,
			APIKey:       c.apiKey,
		})
	}

	start := time.Now()
	var resp goopenai.ChatCompletionResponse

	operation := func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var err error
		resp, err = c.api.CreateChatCompletion(callCtx, req)
		if err != nil {
			return classifyError(callCtx, err)
		}
		if len(resp.Choices) == 0 {
			return llmhttp.NewUnknownError(providerName, "model returned no choices", 0)
		}
		return nil
	}

	if err := llmhttp.RetryWithBackoff(ctx, operation, c.retry); err != nil {
		if c.logger != nil {
			c.logger.LogError(ctx, errorLog(err, c.model, time.Since(start)))
		}
		return verify.ModelReply{}, err
	}

	choice := resp.Choices[0]
	reply := verify.ModelReply{Text: choice.Message.Content}
	for _, call := range choice.Message.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, domain.ToolCallRequest{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}

	if c.logger != nil {
		c.logger.LogResponse(ctx, llmhttp.ResponseLog{
			Provider:     providerName,
			Model:        c.model,
			Timestamp:    time.Now(),
			Duration:     time.Since(start),
			ToolCalls:    len(reply.ToolCalls),
			TokensIn:     resp.Usage.PromptTokens,
			TokensOut:    resp.Usage.CompletionTokens,
			FinishReason: string(choice.FinishReason),
		})
	}

	return reply, nil
}

// buildMessages converts the typed conversation log into wire messages.
func buildMessages(turns []verify.Turn) []goopenai.ChatCompletionMessage {
	messages := make([]goopenai.ChatCompletionMessage, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case verify.RoleSystem:
			messages = append(messages, goopenai.ChatCompletionMessage{
				Role:    goopenai.ChatMessageRoleSystem,
				Content: turn.Text,
			})
		case verify.RoleUser:
			if turn.ImageB64 == "" {
				messages = append(messages, goopenai.ChatCompletionMessage{
					Role:    goopenai.ChatMessageRoleUser,
					Content: turn.Text,
				})
				continue
			}
			messages = append(messages, goopenai.ChatCompletionMessage{
				Role: goopenai.ChatMessageRoleUser,
				MultiContent: []goopenai.ChatMessagePart{
					{Type: goopenai.ChatMessagePartTypeText, Text: turn.Text},
					{
						Type: goopenai.ChatMessagePartTypeImageURL,
						ImageURL: &goopenai.ChatMessageImageURL{
							URL: "data:image/jpeg;base64," + turn.ImageB64,
						},
					},
				},
			})
		case verify.RoleAssistant:
			msg := goopenai.ChatCompletionMessage{
				Role:    goopenai.ChatMessageRoleAssistant,
				Content: turn.Text,
			}
			for _, call := range turn.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, goopenai.ToolCall{
					ID:   call.ID,
					Type: goopenai.ToolTypeFunction,
					Function: goopenai.FunctionCall{
						Name:      call.Name,
						Arguments: call.Arguments,
					},
				})
			}
			messages = append(messages, msg)
		case verify.RoleTool:
			messages = append(messages, goopenai.ChatCompletionMessage{
				Role:       goopenai.ChatMessageRoleTool,
				Content:    turn.Text,
				ToolCallID: turn.ToolCallID,
			})
		}
	}
	return messages
}

func buildTools(schemas []verify.ToolSchema) []goopenai.Tool {
	tools := make([]goopenai.Tool, len(schemas))
	for i, schema := range schemas {
		tools[i] = goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        schema.Name,
				Description: schema.Description,
				Parameters:  schema.Parameters,
			},
		}
	}
	return tools
}

// classifyError maps transport failures onto the shared error taxonomy.
func classifyError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return llmhttp.NewTimeoutError(providerName, "request timed out")
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		switch {
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			return llmhttp.NewAuthenticationError(providerName, msg)
		case apiErr.HTTPStatusCode == 429:
			return llmhttp.NewRateLimitError(providerName, msg)
		case apiErr.HTTPStatusCode >= 500:
			return llmhttp.NewServiceUnavailableError(providerName, msg)
		case apiErr.HTTPStatusCode >= 400:
			return llmhttp.NewInvalidRequestError(providerName, msg)
		}
	}

	return llmhttp.NewUnknownError(providerName, err.Error(), 0)
}

func errorLog(err error, model string, duration time.Duration) llmhttp.ErrorLog {
	entry := llmhttp.ErrorLog{
		Provider:  providerName,
		Model:     model,
		Timestamp: time.Now(),
		Duration:  duration,
		Error:     err,
		ErrorType: llmhttp.ErrTypeUnknown,
	}
	var typed *llmhttp.Error
	if errors.As(err, &typed) {
		entry.ErrorType = typed.Type
		entry.StatusCode = typed.StatusCode
		entry.Retryable = typed.Retryable
	}
	return entry
}

// Compile-time interface check.
var _ verify.ModelClient = (*Client)(nil)

// String describes the client for logs.
func (c *Client) String() string {
	return fmt.Sprintf("openai-compatible client (model=%s)", c.model)
}
