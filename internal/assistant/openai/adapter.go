package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"mail_agent/internal/assistant"
	sl "mail_agent/internal/lib/logger"
)

var _ assistant.Assistant = (*Adapter)(nil)

// maxToolIterations bounds the tool-call loop so a misbehaving model
// cannot keep the request open indefinitely.
const maxToolIterations = 8

// Adapter drives an OpenAI-compatible chat model whose tool calls are
// executed through the email-action connector.
type Adapter struct {
	client   *openai.Client
	model    string
	executor ActionExecutor
	log      *slog.Logger
}

// ActionExecutor runs one allowed action with the model-supplied
// arguments and returns the raw result payload.
type ActionExecutor interface {
	Execute(ctx context.Context, action assistant.Action, params json.RawMessage) (string, error)
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

func New(cfg Config, executor ActionExecutor, log *slog.Logger) *Adapter {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Adapter{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    cfg.Model,
		executor: executor,
		log:      log,
	}
}

func (a *Adapter) Run(ctx context.Context, actions []assistant.Action, instruction string, streaming bool) (string, error) {
	const op = "assistant.openai.Run"

	if streaming {
		return "", fmt.Errorf("%s: streaming runs are not supported", op)
	}

	log := a.log.With(slog.String("op", op))

	allowed := make(map[string]assistant.Action, len(actions))
	for _, action := range actions {
		allowed[string(action)] = action
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleUser,
			Content: instruction,
		},
	}

	tools := toolDefinitions(actions)

	for i := 0; i < maxToolIterations; i++ {
		resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    a.model,
			Messages: messages,
			Tools:    tools,
		})
		if err != nil {
			return "", fmt.Errorf("%s: chat completion failed: %w", op, err)
		}

		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("%s: no choices in response", op)
		}

		msg := resp.Choices[0].Message

		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}

		messages = append(messages, msg)

		for _, tc := range msg.ToolCalls {
			action, ok := allowed[tc.Function.Name]
			if !ok {
				return "", fmt.Errorf("%s: model requested disallowed action %q", op, tc.Function.Name)
			}

			log.Info("executing action", slog.String("action", string(action)))

			result, err := a.executor.Execute(ctx, action, json.RawMessage(tc.Function.Arguments))
			if err != nil {
				log.Error("action failed", sl.Err(err))
				return "", fmt.Errorf("%s: %w", op, err)
			}

			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: tc.ID,
				Name:       tc.Function.Name,
				Content:    result,
			})
		}
	}

	return "", fmt.Errorf("%s: %w", op, errTooManyToolCalls)
}

var errTooManyToolCalls = errors.New("tool call limit exceeded")

func toolDefinitions(actions []assistant.Action) []openai.Tool {
	tools := make([]openai.Tool, 0, len(actions))

	for _, action := range actions {
		var params map[string]any

		switch action {
		case assistant.ActionFetchEmails:
			params = map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Gmail search query, e.g. from:someone@example.com",
					},
					"max_results": map[string]any{
						"type":        "integer",
						"description": "How many of the most recent matches to return",
					},
				},
			}
		case assistant.ActionSendEmail:
			params = map[string]any{
				"type": "object",
				"properties": map[string]any{
					"recipient_email": map[string]any{
						"type":        "string",
						"description": "Destination address",
					},
					"subject": map[string]any{
						"type": "string",
					},
					"body": map[string]any{
						"type":        "string",
						"description": "Plain text message body",
					},
				},
				"required": []string{"recipient_email", "body"},
			}
		default:
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}

		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        string(action),
				Description: actionDescription(action),
				Parameters:  params,
			},
		})
	}

	return tools
}

func actionDescription(action assistant.Action) string {
	switch action {
	case assistant.ActionFetchEmails:
		return "Fetch emails from the connected mailbox"
	case assistant.ActionSendEmail:
		return "Send an email from the connected mailbox"
	default:
		return string(action)
	}
}
