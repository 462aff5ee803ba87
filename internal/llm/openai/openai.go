// Package openai completes prompts through any OpenAI-compatible chat endpoint,
// including hosted Doubao/Ark deployments reached via base_url.
package openai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"stock-analyst/internal/llm"
	"stock-analyst/internal/store"
	"stock-analyst/internal/trace"
	"stock-analyst/internal/types"
)

const defaultKeyEnv = "OPENAI_API_KEY"

type Completer struct {
	cfg    *store.Config
	client *openai.Client
	keyEnv string
}

func NewCompleter(cfg *store.Config) *Completer {
	keyEnv := cfg.LLM.APIKeyEnv
	if keyEnv == "" {
		keyEnv = defaultKeyEnv
	}
	opts := []option.RequestOption{
		option.WithAPIKey(os.Getenv(keyEnv)),
		option.WithRequestTimeout(cfg.LLM.Timeout),
		// retries belong to the fallback policy
		option.WithMaxRetries(0),
	}
	if cfg.LLM.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.LLM.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &Completer{cfg: cfg, client: &client, keyEnv: keyEnv}
}

func (c *Completer) Complete(ctx context.Context, messages []types.ChatMessage) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	if os.Getenv(c.keyEnv) == "" {
		return "", fmt.Errorf("%w: %s missing", llm.ErrCompletionFailed, c.keyEnv)
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    toParams(messages),
		Model:       c.cfg.LLM.Model,
		Temperature: openai.Float(c.cfg.LLM.Temperature),
		MaxTokens:   openai.Int(int64(c.cfg.LLM.MaxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai api error: %w", llm.ErrCompletionFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", llm.ErrCompletionFailed)
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("%w: empty reply", llm.ErrCompletionFailed)
	}
	return out, nil
}

func toParams(messages []types.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case types.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case types.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
