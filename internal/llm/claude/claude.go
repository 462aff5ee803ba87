package claude

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"stock-analyst/internal/llm"
	"stock-analyst/internal/store"
	"stock-analyst/internal/trace"
	"stock-analyst/internal/types"
)

const defaultKeyEnv = "CLAUDE_API_KEY"

// Completer calls the Anthropic Messages API. System messages are lifted into the
// request's system blocks; the rest keep their order.
type Completer struct {
	cfg    *store.Config
	client *anthropic.Client
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
		option.WithMaxRetries(0),
	}
	// proxies and gateways
	if ep := cfg.LLM.BaseURL; ep != "" {
		opts = append(opts, option.WithBaseURL(ep))
	}
	client := anthropic.NewClient(opts...)
	return &Completer{cfg: cfg, client: &client, keyEnv: keyEnv}
}

func (c *Completer) Complete(ctx context.Context, messages []types.ChatMessage) (string, error) {
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	if os.Getenv(c.keyEnv) == "" {
		return "", fmt.Errorf("%w: %s missing", llm.ErrCompletionFailed, c.keyEnv)
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.cfg.LLM.Model),
		MaxTokens:   int64(c.cfg.LLM.MaxTokens),
		Temperature: anthropic.Float(c.cfg.LLM.Temperature),
	}
	for _, m := range messages {
		switch m.Role {
		case types.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case types.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if len(params.Messages) == 0 {
		return "", fmt.Errorf("%w: no user message", llm.ErrCompletionFailed)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: anthropic api error: %w", llm.ErrCompletionFailed, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("%w: empty reply", llm.ErrCompletionFailed)
	}
	return out, nil
}
