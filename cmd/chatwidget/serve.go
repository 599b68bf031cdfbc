package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ashureev/chatwidget/internal/chatservice"
	"github.com/ashureev/chatwidget/internal/webview"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat page and its websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd.Context())
		},
	}
}

func (a *app) runServe(ctx context.Context) error {
	svc, err := chatservice.NewClient(chatservice.Config{
		BaseURL: a.cfg.ChatServiceURL,
		Timeout: a.cfg.RequestTimeout,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("create chat service client: %w", err)
	}

	chat := webview.NewHandler(svc, webview.Config{
		Controller:     a.controllerOptions(),
		OriginPatterns: originHosts(a.cfg.AllowedOrigins),
	}, a.logger)

	// No WriteTimeout: websocket connections are long-lived.
	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           webview.NewRouter(chat, a.cfg.AllowedOrigins, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("Server listening", "addr", srv.Addr, "chat_service_url", a.cfg.ChatServiceURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		a.logger.Info("Server stopped successfully")
		return nil
	})
	return g.Wait()
}

// originHosts turns configured origins into websocket origin patterns, which
// match on host only.
func originHosts(origins []string) []string {
	var hosts []string
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == "*" || !strings.Contains(o, "://") {
			hosts = append(hosts, o)
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
