package noop

import (
	"context"
	"fmt"

	"stock-analyst/internal/fallback"
	"stock-analyst/internal/llm"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/types"
)

// Completer is used when no LLM provider is configured. Every call fails, so each
// LLM-backed step takes its fallback path without waiting on retries.
type Completer struct{}

func NewCompleter() *Completer {
	return &Completer{}
}

func (c *Completer) Complete(ctx context.Context, messages []types.ChatMessage) (string, error) {
	logger.Debug(ctx, "Noop completer called - no provider configured", "messages", len(messages))
	return "", fallback.Permanent(fmt.Errorf("%w: no provider configured", llm.ErrCompletionFailed))
}
