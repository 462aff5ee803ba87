package interfaces

import (
	"context"

	"stock-analyst/internal/types"
)

// Completer turns a role-tagged prompt into model text.
type Completer interface {
	Complete(ctx context.Context, messages []types.ChatMessage) (string, error)
}
