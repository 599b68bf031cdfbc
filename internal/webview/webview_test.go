package webview

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/chatwidget/internal/controller"
	"github.com/ashureev/chatwidget/internal/domain"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu        sync.Mutex
	messages  []string
	feedbacks []domain.Reward
}

func (f *fakeService) SendMessage(_ context.Context, _ string, message string) (*domain.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return &domain.ChatResponse{Response: "echo: " + message, RequiresReward: true}, nil
}

func (f *fakeService) SendFeedback(_ context.Context, _ string, reward domain.Reward) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedbacks = append(f.feedbacks, reward)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, svc *fakeService) *httptest.Server {
	t.Helper()
	logger := discardLogger()
	h := NewHandler(svc, Config{
		Controller: controller.Options{BotName: "Davila", RedirectPath: "/login"},
	}, logger)
	srv := httptest.NewServer(NewRouter(h, nil, logger))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, ctx context.Context, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) serverFrame {
	t.Helper()
	var frame serverFrame
	require.NoError(t, wsjson.Read(ctx, conn, &frame))
	return frame
}

func strPtr(s string) *string { return &s }

func TestChatRoundTrip(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	svc := &fakeService{}
	conn := dial(t, ctx, newTestServer(t, svc))

	require.NoError(t, wsjson.Write(ctx, conn, clientFrame{Type: frameHello, UserID: strPtr("alice")}))

	greeting := readFrame(t, ctx, conn)
	require.Equal(t, opAppend, greeting.Op)
	require.NotNil(t, greeting.Message)
	assert.Equal(t, "Hello alice! I'm Davila. How can I assist you today?", greeting.Message.Text)
	assert.False(t, greeting.Message.RequiresReward)

	require.NoError(t, wsjson.Write(ctx, conn, clientFrame{Type: frameSubmit, Text: "  hi  "}))

	user := readFrame(t, ctx, conn)
	require.Equal(t, opAppend, user.Op)
	assert.Equal(t, domain.SenderUser, user.Message.Sender)
	assert.Equal(t, "hi", user.Message.Text)

	assert.Equal(t, opClearInput, readFrame(t, ctx, conn).Op)

	shown := readFrame(t, ctx, conn)
	require.Equal(t, opTyping, shown.Op)
	require.NotNil(t, shown.Visible)
	assert.True(t, *shown.Visible)

	hidden := readFrame(t, ctx, conn)
	require.Equal(t, opTyping, hidden.Op)
	require.NotNil(t, hidden.Visible)
	assert.False(t, *hidden.Visible)

	reply := readFrame(t, ctx, conn)
	require.Equal(t, opAppend, reply.Op)
	assert.Equal(t, domain.SenderBot, reply.Message.Sender)
	assert.Equal(t, "echo: hi", reply.Message.Text)
	assert.True(t, reply.Message.RequiresReward)

	require.NoError(t, wsjson.Write(ctx, conn, clientFrame{
		Type: frameFeedback, MessageID: reply.Message.ID, Reward: int(domain.RewardDown),
	}))

	disabled := readFrame(t, ctx, conn)
	assert.Equal(t, opDisableFeedback, disabled.Op)
	assert.Equal(t, reply.Message.ID, disabled.MessageID)

	ack := readFrame(t, ctx, conn)
	assert.Equal(t, opAckFeedback, ack.Op)
	assert.Equal(t, reply.Message.ID, ack.MessageID)
	assert.Equal(t, controller.AckText, ack.Text)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, []string{"hi"}, svc.messages)
	assert.Equal(t, []domain.Reward{domain.RewardDown}, svc.feedbacks)
}

func TestRedirectWithoutIdentity(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, newTestServer(t, &fakeService{}))
	require.NoError(t, wsjson.Write(ctx, conn, clientFrame{Type: frameHello}))

	frame := readFrame(t, ctx, conn)
	assert.Equal(t, opRedirect, frame.Op)
	assert.Equal(t, "/login", frame.Path)

	var next serverFrame
	err := wsjson.Read(ctx, conn, &next)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
}

func TestRejectsMissingHello(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, newTestServer(t, &fakeService{}))
	require.NoError(t, wsjson.Write(ctx, conn, clientFrame{Type: frameSubmit, Text: "hi"}))

	var frame serverFrame
	err := wsjson.Read(ctx, conn, &frame)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}

func TestPageAndHealthRoutes(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeService{})

	cases := []struct {
		path     string
		contains string
	}{
		{path: "/health", contains: "."},
		{path: "/chat", contains: `id="chat-box"`},
		{path: "/static/chat.js", contains: "chatbot_username"},
		{path: "/static/chat.css", contains: ".chat-box"},
	}
	for _, tc := range cases {
		resp, err := http.Get(srv.URL + tc.path)
		require.NoError(t, err, tc.path)
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		require.NoError(t, err, tc.path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, tc.path)
		assert.Contains(t, string(body), tc.contains, tc.path)
	}
}

func TestMalformedFrameKeepsSession(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	svc := &fakeService{}
	conn := dial(t, ctx, newTestServer(t, svc))
	require.NoError(t, wsjson.Write(ctx, conn, clientFrame{Type: frameHello, UserID: strPtr("alice")}))
	require.Equal(t, opAppend, readFrame(t, ctx, conn).Op)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"feedback","message_id":"x","reward":"1"}`)))
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`not json`)))
	require.NoError(t, wsjson.Write(ctx, conn, clientFrame{Type: frameSubmit, Text: "still here"}))

	user := readFrame(t, ctx, conn)
	require.Equal(t, opAppend, user.Op)
	assert.Equal(t, "still here", user.Message.Text)
}
