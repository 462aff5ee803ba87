// Package llm holds what the completion providers share: the failure sentinel and
// the reader that turns model text into an analyst signal.
package llm

import "errors"

// ErrCompletionFailed marks any provider failure, including an unusable reply.
var ErrCompletionFailed = errors.New("llm completion failed")
