// Package webview drives a browser chat page over a websocket. The page is a
// thin renderer; a controller.Controller per connection owns the thread.
package webview

import "github.com/ashureev/chatwidget/internal/domain"

// Client frame types.
const (
	frameHello    = "hello"
	frameSubmit   = "submit"
	frameFeedback = "feedback"
)

// Server ops.
const (
	opAppend          = "append"
	opClearInput      = "clear_input"
	opTyping          = "typing"
	opDisableFeedback = "disable_feedback"
	opAckFeedback     = "ack_feedback"
	opRedirect        = "redirect"
)

// clientFrame is what the page sends. UserID is only read from the hello
// frame and is null when the page's session storage has no identity.
type clientFrame struct {
	Type      string  `json:"type"`
	UserID    *string `json:"user_id,omitempty"`
	Text      string  `json:"text,omitempty"`
	MessageID string  `json:"message_id,omitempty"`
	Reward    int     `json:"reward,omitempty"`
}

// serverFrame is one view operation pushed to the page.
type serverFrame struct {
	Op        string          `json:"op"`
	Message   *domain.Message `json:"message,omitempty"`
	MessageID string          `json:"message_id,omitempty"`
	Text      string          `json:"text,omitempty"`
	Visible   *bool           `json:"visible,omitempty"`
	Path      string          `json:"path,omitempty"`
}
