package provider

import (
	"context"
	"fmt"
)

// Mock is a development-only stand-in used when no provider credential is
// configured. It never talks to the network. Production startup refuses to
// run with it.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Complete(ctx context.Context, message string) (*Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Completion{
		Text:  fmt.Sprintf("Mock completion (no provider credential configured). You said: %s", message),
		Model: "mock",
	}, nil
}
