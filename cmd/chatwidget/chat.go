package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ashureev/chatwidget/internal/chatservice"
	"github.com/ashureev/chatwidget/internal/console"
	"github.com/ashureev/chatwidget/internal/controller"
	"github.com/ashureev/chatwidget/internal/identity"
	"github.com/ashureev/chatwidget/internal/store"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const signInHint = "Not signed in. Run: chatwidget session set <name>"

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the bot in this terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func (a *app) runChat(ctx context.Context, in io.Reader, out io.Writer) error {
	storage, err := a.openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := storage.Close(); closeErr != nil {
			a.logger.Error("Failed to close session storage", "error", closeErr)
		}
	}()

	svc, err := chatservice.NewClient(chatservice.Config{
		BaseURL: a.cfg.ChatServiceURL,
		Timeout: a.cfg.RequestTimeout,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("create chat service client: %w", err)
	}

	view := console.NewView(out, console.Options{
		BotName:    a.cfg.BotName,
		Prompt:     isTerminal(in),
		SignInHint: signInHint,
	})

	ctrl := controller.New(svc, view, a.controllerOptions())
	if err := ctrl.Init(ctx, identity.FromStorage(storage)); err != nil {
		if errors.Is(err, controller.ErrNoIdentity) {
			return err
		}
		return fmt.Errorf("start chat: %w", err)
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	store.StartTTLWorker(runCtx, storage, store.DefaultTTLWorkerInterval, nil)

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return ctrl.Run(gctx)
	})
	g.Go(func() error {
		defer stop()
		return console.ReadLoop(gctx, in, view, ctrl)
	})
	return g.Wait()
}

// openStorage opens the session store and drops expired entries.
func (a *app) openStorage(ctx context.Context) (*store.SQLiteStore, error) {
	storage, err := store.NewSQLite(a.cfg.SessionDBPath, a.cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("open session storage: %w", err)
	}
	if err := storage.Ping(ctx); err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("session storage health check: %w", err)
	}

	removed, err := storage.CleanupExpired(ctx)
	if err != nil {
		a.logger.Warn("Failed to clean up expired session entries", "error", err)
	} else if removed > 0 {
		a.logger.Info("Expired session entries removed", "count", removed)
	}
	return storage, nil
}

// isTerminal reports whether in is an interactive terminal.
func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
