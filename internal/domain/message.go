// Package domain contains core domain types for the chat widget.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a message in the thread.
type Sender string

const (
	// SenderUser marks a message typed by the local user.
	SenderUser Sender = "user"
	// SenderBot marks a message produced by the chat service or the widget itself.
	SenderBot Sender = "bot"
)

// Message is a single entry of the visible thread.
// Messages live only in memory for the lifetime of a controller.
type Message struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	Sender         Sender    `json:"sender"`
	RequiresReward bool      `json:"requires_reward"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewUserMessage builds a user-authored message with a fresh ID.
func NewUserMessage(text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    SenderUser,
		CreatedAt: time.Now(),
	}
}

// NewBotMessage builds a bot-authored message with a fresh ID.
func NewBotMessage(text string, requiresReward bool) Message {
	return Message{
		ID:             uuid.NewString(),
		Text:           text,
		Sender:         SenderBot,
		RequiresReward: requiresReward,
		CreatedAt:      time.Now(),
	}
}

// HasFeedbackControls reports whether the message renders thumbs up/down controls.
// Only bot messages that asked for a reward do.
func (m Message) HasFeedbackControls() bool {
	return m.Sender == SenderBot && m.RequiresReward
}
