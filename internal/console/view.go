// Package console renders the chat thread in a terminal and turns typed lines
// into controller events.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/ashureev/chatwidget/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Options configures the terminal view.
type Options struct {
	BotName string
	// Prompt prints "> " after each render. Enable it only when stdin is a TTY.
	Prompt bool
	// SignInHint is printed on redirect.
	SignInHint string
}

type styles struct {
	user   lipgloss.Style
	bot    lipgloss.Style
	faint  lipgloss.Style
	notice lipgloss.Style
}

// View is a controller.View that writes to a terminal.
// Message numbers shown next to feedback controls map back to message IDs.
type View struct {
	out    io.Writer
	opts   Options
	styles styles

	mu         sync.Mutex
	numbers    map[int]string
	byID       map[string]int
	disabled   map[string]bool
	next       int
	typing     bool
	redirected chan struct{}
}

// NewView creates a terminal view writing to out.
func NewView(out io.Writer, opts Options) *View {
	if opts.BotName == "" {
		opts.BotName = "bot"
	}
	if opts.SignInHint == "" {
		opts.SignInHint = "Not signed in."
	}
	r := lipgloss.NewRenderer(out)
	return &View{
		out:  out,
		opts: opts,
		styles: styles{
			user:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
			bot:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
			faint:  r.NewStyle().Faint(true),
			notice: r.NewStyle().Foreground(lipgloss.Color("9")),
		},
		numbers:    make(map[int]string),
		byID:       make(map[string]int),
		disabled:   make(map[string]bool),
		redirected: make(chan struct{}),
	}
}

// AppendMessage prints one message.
func (v *View) AppendMessage(msg domain.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if msg.Sender == domain.SenderUser {
		v.printf("%s %s\n", v.styles.user.Render("you:"), msg.Text)
		return
	}

	v.printf("%s %s\n", v.styles.bot.Render(v.opts.BotName+":"), msg.Text)
	if msg.HasFeedbackControls() {
		v.next++
		v.numbers[v.next] = msg.ID
		v.byID[msg.ID] = v.next
		v.printf("%s\n", v.styles.faint.Render(fmt.Sprintf("  [#%d] rate with /up %d or /down %d", v.next, v.next, v.next)))
	}
	v.promptLocked()
}

// ClearInput is a no-op: the reader already consumed the typed line.
func (v *View) ClearInput() {}

// SetTyping prints the indicator when it goes up.
func (v *View) SetTyping(visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if visible && !v.typing {
		v.printf("%s\n", v.styles.faint.Render(v.opts.BotName+" is typing..."))
	}
	v.typing = visible
}

// DisableFeedback marks a message's controls as used.
func (v *View) DisableFeedback(messageID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.disabled[messageID] = true
}

// AckFeedback prints the acknowledgment under the rated message number.
func (v *View) AckFeedback(messageID, text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	n, ok := v.byID[messageID]
	if !ok {
		return
	}
	v.printf("%s\n", v.styles.faint.Render(fmt.Sprintf("  [#%d] %s", n, text)))
	v.promptLocked()
}

// Redirect prints the sign-in hint and releases Redirected. A terminal has
// no page to navigate to, so path is only logged by the controller.
func (v *View) Redirect(string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	select {
	case <-v.redirected:
		return
	default:
	}
	v.printf("%s\n", v.styles.notice.Render(v.opts.SignInHint))
	close(v.redirected)
}

// Redirected is closed once the controller redirects away.
func (v *View) Redirected() <-chan struct{} {
	return v.redirected
}

// Typing reports whether the indicator is currently up.
func (v *View) Typing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.typing
}

// lookup maps a displayed number to a message ID.
func (v *View) lookup(n int) (id string, disabled bool, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id, ok = v.numbers[n]
	return id, v.disabled[id], ok
}

// Notice prints an out-of-band line such as a usage hint.
func (v *View) Notice(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.printf("%s\n", v.styles.faint.Render(text))
	v.promptLocked()
}

func (v *View) promptLocked() {
	if v.opts.Prompt {
		v.printf("> ")
	}
}

func (v *View) printf(format string, args ...any) {
	// Terminal write errors have nowhere better to go.
	_, _ = fmt.Fprintf(v.out, format, args...)
}
