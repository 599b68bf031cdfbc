// chatwidget - chat widget host: a terminal chat client and a websocket web host.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashureev/chatwidget/internal/config"
	"github.com/ashureev/chatwidget/internal/controller"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs after PersistentPreRunE.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "chatwidget",
		Short:         "Chat widget host for a conversational bot service",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")

	root.AddCommand(newChatCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newSessionCmd(a))
	return root
}

func (a *app) load(logOut io.Writer) error {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cfg.Log, logOut)
	slog.SetDefault(a.logger)
	return nil
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (a *app) controllerOptions() controller.Options {
	return controller.Options{
		BotName:      a.cfg.BotName,
		RedirectPath: a.cfg.RedirectPath,
		Overlap:      controller.OverlapPolicy(a.cfg.OverlapPolicy),
		Logger:       a.logger,
	}
}
