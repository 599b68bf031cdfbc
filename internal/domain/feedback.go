package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidReward is returned when a reward is neither up nor down.
var ErrInvalidReward = errors.New("invalid reward")

// Reward is the signed feedback signal attached to a bot reply.
type Reward int

const (
	// RewardUp is a thumbs-up.
	RewardUp Reward = 1
	// RewardDown is a thumbs-down.
	RewardDown Reward = -1
)

// Validate returns ErrInvalidReward for anything other than +1 or -1.
func (r Reward) Validate() error {
	if r != RewardUp && r != RewardDown {
		return fmt.Errorf("%w: %d", ErrInvalidReward, int(r))
	}
	return nil
}

func (r Reward) String() string {
	switch r {
	case RewardUp:
		return "up"
	case RewardDown:
		return "down"
	default:
		return fmt.Sprintf("reward(%d)", int(r))
	}
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// ChatResponse is the body returned by POST /api/chat.
type ChatResponse struct {
	Response       string `json:"response"`
	RequiresReward bool   `json:"requires_reward"`
}

// FeedbackRequest is the body of POST /api/feedback.
type FeedbackRequest struct {
	UserID string `json:"user_id"`
	Reward Reward `json:"reward"`
}
