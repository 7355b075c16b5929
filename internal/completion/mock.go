package completion

import (
	"context"
	"fmt"
	"strings"
)

// MockClient provides deterministic local replies when no model server is
// configured. Useful for development and the httpapi tests.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	msg := strings.TrimSpace(userMessage)
	if msg == "" {
		return "I'm listening.", nil
	}
	if strings.HasPrefix(msg, "Please greet ") {
		return "Hello! I'm so happy to see you today. How has your day been?", nil
	}
	return fmt.Sprintf("I heard you: %s", msg), nil
}

func (c *MockClient) Ping(ctx context.Context) error {
	return ctx.Err()
}
