package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ashureev/chatwidget/internal/domain"
)

const helpText = "type a message and press enter; /up N or /down N rates reply #N; /quit exits"

// Controller is the part of controller.Controller the input loop drives.
type Controller interface {
	Submit(text string) error
	Feedback(messageID string, reward domain.Reward) error
	Wait(ctx context.Context) error
}

type commandKind int

const (
	cmdSubmit commandKind = iota
	cmdFeedback
	cmdQuit
	cmdHelp
)

type command struct {
	kind   commandKind
	text   string
	number int
	reward domain.Reward
}

var errUnknownCommand = errors.New("unknown command")

// parseLine turns one input line into a command. Anything that is not a
// known slash command is submitted as-is; the controller trims it.
func parseLine(line string) (command, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		return command{kind: cmdSubmit, text: line}, nil
	}

	fields := strings.Fields(trimmed)
	switch strings.ToLower(fields[0]) {
	case "/quit", "/exit":
		return command{kind: cmdQuit}, nil
	case "/help":
		return command{kind: cmdHelp}, nil
	case "/up", "/down":
		if len(fields) != 2 {
			return command{}, fmt.Errorf("usage: %s N", fields[0])
		}
		n, err := strconv.Atoi(strings.TrimPrefix(fields[1], "#"))
		if err != nil || n <= 0 {
			return command{}, fmt.Errorf("usage: %s N", fields[0])
		}
		reward := domain.RewardUp
		if strings.EqualFold(fields[0], "/down") {
			reward = domain.RewardDown
		}
		return command{kind: cmdFeedback, number: n, reward: reward}, nil
	default:
		return command{}, fmt.Errorf("%w %s", errUnknownCommand, fields[0])
	}
}

// ReadLoop reads lines from in until EOF, /quit, a redirect, or ctx ends.
// Before returning on EOF or /quit it waits for outstanding requests so their
// replies are printed.
func ReadLoop(ctx context.Context, in io.Reader, view *View, ctrl Controller) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		defer func() { scanErr <- scanner.Err() }()
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-view.Redirected():
			return nil
		case line, ok := <-lines:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				if err := <-scanErr; err != nil {
					return fmt.Errorf("read input: %w", err)
				}
				return drain(ctx, ctrl)
			}
			quit, err := dispatch(line, view, ctrl)
			if err != nil {
				return err
			}
			if quit {
				return drain(ctx, ctrl)
			}
		}
	}
}

func dispatch(line string, view *View, ctrl Controller) (quit bool, err error) {
	cmd, parseErr := parseLine(line)
	if parseErr != nil {
		view.Notice(parseErr.Error() + " (" + helpText + ")")
		return false, nil
	}

	switch cmd.kind {
	case cmdQuit:
		return true, nil
	case cmdHelp:
		view.Notice(helpText)
	case cmdFeedback:
		id, disabled, ok := view.lookup(cmd.number)
		if !ok {
			view.Notice(fmt.Sprintf("reply #%d has no feedback controls", cmd.number))
			return false, nil
		}
		if disabled {
			view.Notice(fmt.Sprintf("reply #%d was already rated", cmd.number))
			return false, nil
		}
		return false, ctrl.Feedback(id, cmd.reward)
	case cmdSubmit:
		return false, ctrl.Submit(cmd.text)
	}
	return false, nil
}

func drain(ctx context.Context, ctrl Controller) error {
	if err := ctrl.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
