package webview

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ashureev/chatwidget/internal/domain"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 10 * time.Second

// socketView implements controller.View by pushing ops to one page.
type socketView struct {
	ctx    context.Context
	conn   *websocket.Conn
	logger *slog.Logger
}

func newSocketView(ctx context.Context, conn *websocket.Conn, logger *slog.Logger) *socketView {
	return &socketView{ctx: ctx, conn: conn, logger: logger}
}

func (v *socketView) AppendMessage(msg domain.Message) {
	v.send(serverFrame{Op: opAppend, Message: &msg})
}

func (v *socketView) ClearInput() {
	v.send(serverFrame{Op: opClearInput})
}

func (v *socketView) SetTyping(visible bool) {
	v.send(serverFrame{Op: opTyping, Visible: &visible})
}

func (v *socketView) DisableFeedback(messageID string) {
	v.send(serverFrame{Op: opDisableFeedback, MessageID: messageID})
}

func (v *socketView) AckFeedback(messageID, text string) {
	v.send(serverFrame{Op: opAckFeedback, MessageID: messageID, Text: text})
}

func (v *socketView) Redirect(path string) {
	v.send(serverFrame{Op: opRedirect, Path: path})
}

func (v *socketView) send(frame serverFrame) {
	ctx, cancel := context.WithTimeout(v.ctx, writeTimeout)
	defer cancel()

	if err := wsjson.Write(ctx, v.conn, frame); err != nil {
		// Check if this is a closed connection error - these are expected
		if errors.Is(err, context.Canceled) || websocket.CloseStatus(err) != -1 {
			v.logger.Debug("webview: dropped frame on closed connection", "op", frame.Op)
			return
		}
		v.logger.Warn("webview: failed to write frame", "op", frame.Op, "error", err)
	}
}
