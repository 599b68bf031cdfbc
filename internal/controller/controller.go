// Package controller implements the chat widget: the thread, the typing
// indicator, per-message feedback state, and the calls to the chat service.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/ashureev/chatwidget/internal/chatservice"
	"github.com/ashureev/chatwidget/internal/domain"
	"github.com/ashureev/chatwidget/internal/identity"
)

const (
	// ErrorText is shown as a bot message when a chat request fails.
	ErrorText = "Oops! Something went wrong. Please try again."
	// AckText acknowledges a submitted reward.
	AckText = "Thanks!"

	DefaultBotName      = "Davila"
	DefaultRedirectPath = "/"

	greetingFormat = "Hello %s! I'm %s. How can I assist you today?"
	eventQueueSize = 64
)

var (
	// ErrNoIdentity is returned by Init when session storage holds no identity.
	ErrNoIdentity = errors.New("no identity in session storage")
	// ErrStopped is returned once the event loop has exited.
	ErrStopped = errors.New("controller stopped")
)

// OverlapPolicy decides what happens to a submit while a chat request is outstanding.
type OverlapPolicy string

const (
	// OverlapAllow sends every submit; the typing indicator stays up until
	// the last outstanding request settles.
	OverlapAllow OverlapPolicy = "allow"
	// OverlapIgnore drops a submit while a chat request is outstanding.
	OverlapIgnore OverlapPolicy = "ignore"
)

// Options configures a Controller.
type Options struct {
	BotName      string
	RedirectPath string
	Overlap      OverlapPolicy
	Logger       *slog.Logger
}

type lifecycle int

const (
	stateNew lifecycle = iota
	stateActive
	stateRedirected
)

type feedbackState int

const (
	feedbackPending feedbackState = iota
	feedbackDisabled
)

// Controller owns one chat page. All state below the event channel is owned
// by the Run goroutine; Submit, Feedback, Thread and Wait hand work to it.
type Controller struct {
	service chatservice.Service
	view    View
	opts    Options
	log     *slog.Logger

	events  chan func(ctx context.Context)
	done    chan struct{}
	running atomic.Bool

	state       lifecycle
	identity    string
	thread      []domain.Message
	feedback    map[string]feedbackState
	chatsActive int
	outstanding int
	idleWaiters []chan struct{}
}

// New creates a controller. Call Init, then Run.
func New(service chatservice.Service, view View, opts Options) *Controller {
	if opts.BotName == "" {
		opts.BotName = DefaultBotName
	}
	if opts.RedirectPath == "" {
		opts.RedirectPath = DefaultRedirectPath
	}
	if opts.Overlap == "" {
		opts.Overlap = OverlapAllow
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		service:  service,
		view:     view,
		opts:     opts,
		log:      logger,
		events:   make(chan func(ctx context.Context), eventQueueSize),
		done:     make(chan struct{}),
		feedback: make(map[string]feedbackState),
	}
}

// Init reads the identity once. Without one it redirects and returns
// ErrNoIdentity; the controller then ignores every later event. Otherwise it
// renders the greeting. Init must be called before Run.
func (c *Controller) Init(ctx context.Context, src identity.Source) error {
	if c.running.Load() {
		return fmt.Errorf("controller: Init called after Run")
	}
	if c.state != stateNew {
		return fmt.Errorf("controller: already initialized")
	}

	id, ok, err := src.Identity(ctx)
	if err != nil {
		return fmt.Errorf("resolve identity: %w", err)
	}
	if !ok {
		c.state = stateRedirected
		c.log.Info("No identity found, redirecting", "path", c.opts.RedirectPath)
		c.view.Redirect(c.opts.RedirectPath)
		return ErrNoIdentity
	}

	c.identity = id
	c.state = stateActive
	c.appendMessage(domain.NewBotMessage(fmt.Sprintf(greetingFormat, id, c.opts.BotName), false))
	c.log.Info("Chat controller initialized", "user_id", id)
	return nil
}

// Identity returns the identity read by Init.
func (c *Controller) Identity() string {
	return c.identity
}

// Run processes events until ctx is cancelled. Cancelling ctx also cancels
// outstanding requests; their results are discarded.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return fmt.Errorf("controller: Run called twice")
	}
	defer func() {
		// Pending Wait calls observe done and report ErrStopped.
		c.idleWaiters = nil
		close(c.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-c.events:
			ev(ctx)
		}
	}
}

// Submit handles a form submission.
func (c *Controller) Submit(text string) error {
	return c.post(func(ctx context.Context) {
		c.handleSubmit(ctx, text)
	})
}

// Feedback handles a click on one of a message's feedback controls.
func (c *Controller) Feedback(messageID string, reward domain.Reward) error {
	return c.post(func(ctx context.Context) {
		c.handleFeedback(ctx, messageID, reward)
	})
}

// Thread returns a copy of the thread.
func (c *Controller) Thread(ctx context.Context) ([]domain.Message, error) {
	reply := make(chan []domain.Message, 1)
	if err := c.post(func(context.Context) {
		reply <- slices.Clone(c.thread)
	}); err != nil {
		return nil, err
	}
	select {
	case thread := <-reply:
		return thread, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrStopped
	}
}

// Wait blocks until every event posted before it has run and every chat and
// feedback request has settled and been rendered. It returns ErrStopped if
// Run exits first.
func (c *Controller) Wait(ctx context.Context) error {
	idle := make(chan struct{})
	if err := c.post(func(context.Context) {
		if c.outstanding == 0 {
			close(idle)
			return
		}
		c.idleWaiters = append(c.idleWaiters, idle)
	}); err != nil {
		return err
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		select {
		case <-idle:
			return nil
		default:
			return ErrStopped
		}
	}
}

func (c *Controller) post(ev func(ctx context.Context)) error {
	select {
	case <-c.done:
		return ErrStopped
	default:
	}
	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return ErrStopped
	}
}

func (c *Controller) handleSubmit(ctx context.Context, text string) {
	if c.state != stateActive {
		c.log.Debug("Submit ignored, controller not active")
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if c.opts.Overlap == OverlapIgnore && c.chatsActive > 0 {
		c.log.Debug("Submit ignored, chat request already outstanding", "user_id", c.identity)
		return
	}

	c.appendMessage(domain.NewUserMessage(text))
	c.view.ClearInput()

	c.chatsActive++
	if c.chatsActive == 1 {
		c.view.SetTyping(true)
	}
	c.outstanding++

	userID := c.identity
	go func() {
		resp, err := c.service.SendMessage(ctx, userID, text)
		c.deliver(func() {
			c.handleReply(resp, err)
		})
	}()
}

// handleReply settles one chat request. The indicator hide for this request
// happens here and nowhere else.
func (c *Controller) handleReply(resp *domain.ChatResponse, err error) {
	c.chatsActive--
	if c.chatsActive == 0 {
		c.view.SetTyping(false)
	}

	if err == nil && resp == nil {
		err = errors.New("empty chat response")
	}
	if err != nil {
		c.log.Error("Chat request failed", "user_id", c.identity, "error", err)
		c.appendMessage(domain.NewBotMessage(ErrorText, false))
		return
	}
	c.appendMessage(domain.NewBotMessage(resp.Response, resp.RequiresReward))
}

func (c *Controller) handleFeedback(ctx context.Context, messageID string, reward domain.Reward) {
	if c.state != stateActive {
		return
	}
	if err := reward.Validate(); err != nil {
		c.log.Warn("Feedback ignored", "message_id", messageID, "error", err)
		return
	}
	state, ok := c.feedback[messageID]
	if !ok {
		c.log.Debug("Feedback ignored, message has no feedback controls", "message_id", messageID)
		return
	}
	if state == feedbackDisabled {
		c.log.Debug("Feedback ignored, already submitted", "message_id", messageID)
		return
	}

	c.feedback[messageID] = feedbackDisabled
	c.view.DisableFeedback(messageID)
	c.outstanding++

	userID := c.identity
	go func() {
		err := c.service.SendFeedback(ctx, userID, reward)
		c.deliver(func() {
			if err != nil {
				c.log.Error("Feedback request failed",
					"user_id", userID,
					"message_id", messageID,
					"reward", int(reward),
					"error", err,
				)
				return
			}
			c.view.AckFeedback(messageID, AckText)
		})
	}()
}

// deliver hands a request result back to the loop and marks the request settled.
// Results arriving after Run has returned are dropped.
func (c *Controller) deliver(fn func()) {
	if err := c.post(func(context.Context) {
		fn()
		c.settle()
	}); err != nil {
		c.log.Debug("Dropping result, controller stopped")
	}
}

func (c *Controller) settle() {
	c.outstanding--
	if c.outstanding > 0 {
		return
	}
	for _, w := range c.idleWaiters {
		close(w)
	}
	c.idleWaiters = nil
}

func (c *Controller) appendMessage(msg domain.Message) {
	c.thread = append(c.thread, msg)
	if msg.HasFeedbackControls() {
		c.feedback[msg.ID] = feedbackPending
	}
	c.view.AppendMessage(msg)
}
