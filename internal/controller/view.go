package controller

import "github.com/ashureev/chatwidget/internal/domain"

// View renders the controller's state. The controller calls a View only from
// its event loop goroutine, one call at a time.
type View interface {
	// AppendMessage renders msg at the end of the thread. Feedback controls
	// are rendered iff msg.HasFeedbackControls().
	AppendMessage(msg domain.Message)

	// ClearInput empties the message input field.
	ClearInput()

	// SetTyping shows or hides the typing indicator.
	SetTyping(visible bool)

	// DisableFeedback makes both feedback controls of a message inert.
	DisableFeedback(messageID string)

	// AckFeedback appends a short acknowledgment next to a message's controls.
	AckFeedback(messageID, text string)

	// Redirect navigates away from the chat. The controller does nothing after it.
	Redirect(path string)
}
