package webview

import (
	"log/slog"
	"net/http"

	"github.com/ashureev/chatwidget/internal/middleware"
	"github.com/ashureev/chatwidget/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the chat page, its assets, the websocket endpoint and /health.
func NewRouter(chat *Handler, allowedOrigins []string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Get("/chat", web.PageHandler().ServeHTTP)
	r.With(middleware.CORS(allowedOrigins)).Handle("/static/*", web.StaticHandler("/static/"))
	chat.RegisterRoutes(r)

	return r
}
