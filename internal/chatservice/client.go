package chatservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/chatwidget/internal/domain"
)

const (
	chatPath     = "/api/chat"
	feedbackPath = "/api/feedback"

	// maxErrorBody caps how much of a failed response is kept for diagnostics.
	maxErrorBody = 4 << 10
	// maxResponseBody caps a successful chat reply.
	maxResponseBody = 1 << 20
)

var (
	// ErrUnexpectedStatus wraps every non-2xx reply.
	ErrUnexpectedStatus = errors.New("unexpected status from chat service")
	// ErrDecode is returned when a 2xx chat reply is not the expected JSON.
	ErrDecode = errors.New("decode chat response")
)

// StatusError carries the status code and a prefix of the body of a non-2xx reply.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %d", ErrUnexpectedStatus, e.Code)
	}
	return fmt.Sprintf("%s: %d: %s", ErrUnexpectedStatus, e.Code, e.Body)
}

// Unwrap lets errors.Is match ErrUnexpectedStatus.
func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Config holds configuration for the HTTP client.
type Config struct {
	BaseURL string
	// Timeout bounds each call. Zero means no deadline, so a hung request
	// keeps the typing indicator up until the caller's context ends.
	Timeout time.Duration
}

// Client talks to the chat service over JSON/HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a chat service client.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("chat service base url is required")
	}

	c := &Client{
		baseURL: base,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SendMessage posts to /api/chat.
func (c *Client) SendMessage(ctx context.Context, userID, message string) (*domain.ChatResponse, error) {
	resp, err := c.post(ctx, chatPath, domain.ChatRequest{UserID: userID, Message: message})
	if err != nil {
		return nil, err
	}
	defer c.drainAndClose(resp)

	var out domain.ChatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	c.logger.Debug("Chat reply received",
		"user_id", userID,
		"response_length", len(out.Response),
		"requires_reward", out.RequiresReward,
	)
	return &out, nil
}

// SendFeedback posts to /api/feedback. A non-2xx reply is logged, not returned.
func (c *Client) SendFeedback(ctx context.Context, userID string, reward domain.Reward) error {
	if err := reward.Validate(); err != nil {
		return err
	}
	resp, err := c.post(ctx, feedbackPath, domain.FeedbackRequest{UserID: userID, Reward: reward})
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		// The call reached the service; only transport errors fail feedback.
		c.logger.Warn("Feedback rejected by chat service",
			"user_id", userID,
			"reward", int(reward),
			"status", statusErr.Code,
			"body", statusErr.Body,
		)
		return nil
	}
	if err != nil {
		return err
	}
	c.drainAndClose(resp)

	c.logger.Debug("Feedback accepted", "user_id", userID, "reward", int(reward))
	return nil
}

// post sends body as JSON and returns the response only for 2xx replies.
func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer c.drainAndClose(resp)
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("post %s: %w", path, &StatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(snippet)),
		})
	}
	return resp, nil
}

func (c *Client) drainAndClose(resp *http.Response) {
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody)); err != nil {
		c.logger.Debug("chatservice: failed to drain response body", "error", err)
	}
	if err := resp.Body.Close(); err != nil {
		c.logger.Debug("chatservice: failed to close response body", "error", err)
	}
}
