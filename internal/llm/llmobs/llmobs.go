package llmobs

import (
	"context"
	"time"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/trace"
	"stock-analyst/internal/types"
)

// observableCompleter wraps a Completer with logging and tracing
type observableCompleter struct {
	completer interfaces.Completer
	provider  string
}

var _ interfaces.Completer = (*observableCompleter)(nil)

func Wrap(completer interfaces.Completer, provider string) interfaces.Completer {
	return &observableCompleter{
		completer: completer,
		provider:  provider,
	}
}

func (oc *observableCompleter) Complete(ctx context.Context, messages []types.ChatMessage) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Complete")
	defer span.End()

	start := time.Now()
	// Skip(1) reports the node that asked, not this wrapper
	logger.DebugSkip(ctx, 1, "Requesting completion",
		"provider", oc.provider,
		"messages", len(messages),
	)

	out, err := oc.completer.Complete(ctx, messages)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Completion failed", err,
			"provider", oc.provider,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	logger.InfoSkip(ctx, 1, "Completion received",
		"provider", oc.provider,
		"chars", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
