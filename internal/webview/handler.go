package webview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/chatwidget/internal/chatservice"
	"github.com/ashureev/chatwidget/internal/controller"
	"github.com/ashureev/chatwidget/internal/domain"
	"github.com/ashureev/chatwidget/internal/identity"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

const (
	defaultHelloTimeout = 10 * time.Second
	maxFrameSize        = 64 << 10
)

// Config holds web view configuration.
type Config struct {
	Controller controller.Options
	// OriginPatterns lists extra hosts allowed to open the socket. The
	// request's own host is always allowed.
	OriginPatterns []string
	HelloTimeout   time.Duration
}

// Handler serves GET /ws/chat. Each connection gets its own controller.
type Handler struct {
	service chatservice.Service
	cfg     Config
	logger  *slog.Logger
}

// NewHandler creates a websocket chat handler.
func NewHandler(service chatservice.Service, cfg Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HelloTimeout <= 0 {
		cfg.HelloTimeout = defaultHelloTimeout
	}
	cfg.Controller.Logger = logger
	return &Handler{service: service, cfg: cfg, logger: logger}
}

// RegisterRoutes registers the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/chat", h.ServeHTTP)
}

// ServeHTTP upgrades the request and runs one chat page until either side leaves.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.OriginPatterns,
	})
	if err != nil {
		h.logger.Warn("WebSocket accept failed", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()
	conn.SetReadLimit(maxFrameSize)

	ctx := r.Context()

	hello, err := h.readHello(ctx, conn)
	if err != nil {
		h.logger.Warn("WebSocket hello failed", "error", err)
		_ = conn.Close(websocket.StatusPolicyViolation, "expected hello frame")
		return
	}

	view := newSocketView(ctx, conn, h.logger)
	ctrl := controller.New(h.service, view, h.cfg.Controller)

	var userID string
	if hello.UserID != nil {
		userID = *hello.UserID
	}
	if err := ctrl.Init(ctx, identity.Static(userID)); err != nil {
		if errors.Is(err, controller.ErrNoIdentity) {
			_ = conn.Close(websocket.StatusNormalClosure, "redirect")
			return
		}
		h.logger.Error("Chat controller init failed", "error", err)
		_ = conn.Close(websocket.StatusInternalError, "init failed")
		return
	}

	h.logger.Info("Chat page connected", "user_id", ctrl.Identity())

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return ctrl.Run(gctx)
	})
	g.Go(func() error {
		defer stop()
		return h.readLoop(gctx, conn, ctrl)
	})

	if err := g.Wait(); err != nil {
		h.logger.Warn("Chat page session ended with error", "user_id", ctrl.Identity(), "error", err)
		_ = conn.Close(websocket.StatusInternalError, "session error")
		return
	}

	h.logger.Info("Chat page disconnected", "user_id", ctrl.Identity())
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Handler) readHello(ctx context.Context, conn *websocket.Conn) (clientFrame, error) {
	helloCtx, cancel := context.WithTimeout(ctx, h.cfg.HelloTimeout)
	defer cancel()

	var hello clientFrame
	if err := wsjson.Read(helloCtx, conn, &hello); err != nil {
		return clientFrame{}, fmt.Errorf("read hello: %w", err)
	}
	if hello.Type != frameHello {
		return clientFrame{}, fmt.Errorf("unexpected first frame %q", hello.Type)
	}
	return hello, nil
}

// readLoop turns page frames into controller events until the page goes away.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, ctrl *controller.Controller) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		if typ != websocket.MessageText {
			h.logger.Warn("Ignoring non-text frame", "user_id", ctrl.Identity())
			continue
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.logger.Warn("Ignoring malformed frame", "user_id", ctrl.Identity(), "error", err)
			continue
		}

		switch frame.Type {
		case frameSubmit:
			err = ctrl.Submit(frame.Text)
		case frameFeedback:
			err = ctrl.Feedback(frame.MessageID, domain.Reward(frame.Reward))
		default:
			h.logger.Warn("Ignoring unknown frame", "type", frame.Type, "user_id", ctrl.Identity())
		}
		if errors.Is(err, controller.ErrStopped) {
			return nil
		}
	}
}
