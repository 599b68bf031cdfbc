// Package identity resolves the chat user's identity from session storage.
package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ashureev/chatwidget/internal/store"
)

// StorageKey is the session storage entry written by the login flow.
const StorageKey = "chatbot_username"

// ErrInvalidUsername is returned by SignIn for names the chat service would reject.
var ErrInvalidUsername = errors.New("invalid username")

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}._@+-]{1,64}$`)

// Source yields the identity of the current user.
// ok is false when no identity has been stored; that is not an error.
type Source interface {
	Identity(ctx context.Context) (id string, ok bool, err error)
}

// Static is an identity handed over by the client, such as the value a
// browser page read from its own session storage.
type Static string

// Identity returns the trimmed value, or ok=false if it is blank.
func (s Static) Identity(context.Context) (string, bool, error) {
	id, ok := normalize(string(s))
	return id, ok, nil
}

// StorageSource reads the identity from a SessionStorage entry.
type StorageSource struct {
	storage store.SessionStorage
}

// FromStorage returns a Source backed by storage.
func FromStorage(storage store.SessionStorage) *StorageSource {
	return &StorageSource{storage: storage}
}

// Identity returns the stored username.
func (s *StorageSource) Identity(ctx context.Context) (string, bool, error) {
	value, ok, err := s.storage.GetItem(ctx, StorageKey)
	if err != nil {
		return "", false, fmt.Errorf("read identity: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	id, ok := normalize(value)
	return id, ok, nil
}

// SignIn stores username as the session identity.
func SignIn(ctx context.Context, storage store.SessionStorage, username string) error {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: %q", ErrInvalidUsername, username)
	}
	if err := storage.SetItem(ctx, StorageKey, username); err != nil {
		return fmt.Errorf("store identity: %w", err)
	}
	return nil
}

// SignOut removes the session identity.
func SignOut(ctx context.Context, storage store.SessionStorage) error {
	if err := storage.RemoveItem(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear identity: %w", err)
	}
	return nil
}

func normalize(value string) (string, bool) {
	value = strings.TrimSpace(value)
	return value, value != ""
}
