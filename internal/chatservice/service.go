// Package chatservice is the client side of the remote chat endpoints.
package chatservice

import (
	"context"

	"github.com/ashureev/chatwidget/internal/domain"
)

// Service defines the two calls the chat widget makes.
// This interface is implemented by the HTTP client.
type Service interface {
	// SendMessage posts a user message and returns the bot reply.
	SendMessage(ctx context.Context, userID, message string) (*domain.ChatResponse, error)

	// SendFeedback posts a reward for the latest bot reply. The response body is ignored.
	SendFeedback(ctx context.Context, userID string, reward domain.Reward) error
}

// Ensure Client implements Service.
var _ Service = (*Client)(nil)
