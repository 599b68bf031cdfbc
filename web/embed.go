// Package web embeds the chat page and its static assets.
package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
)

//go:embed all:dist
var distFS embed.FS

const pageFile = "chat.html"

func assets() fs.FS {
	subFS, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	return subFS
}

// PageHandler serves the chat page.
func PageHandler() http.Handler {
	subFS := assets()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(subFS, pageFile)
		if err != nil {
			slog.Error("web: chat page missing from embedded assets", "error", err)
			http.Error(w, "chat page unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if _, err := w.Write(data); err != nil {
			slog.Debug("web: failed to write chat page", "error", err)
		}
	})
}

// StaticHandler serves the page's script and stylesheet under prefix.
func StaticHandler(prefix string) http.Handler {
	return http.StripPrefix(prefix, http.FileServer(http.FS(assets())))
}
