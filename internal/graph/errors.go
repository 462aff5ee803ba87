package graph

import (
	"errors"
	"fmt"
)

// ErrGraphConfiguration is matched by every graph wiring problem found at build time.
var ErrGraphConfiguration = errors.New("graph configuration error")

// ConfigurationError describes one wiring problem.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "graph configuration error: " + e.Reason
}

// Is makes errors.Is(err, ErrGraphConfiguration) true.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrGraphConfiguration
}

func configErrorf(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// NodeError is returned by Run when a node fails or panics.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
