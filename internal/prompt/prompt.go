// Package prompt is the user-facing side of the flow: blocking alerts,
// soft notices, confirmations and the OS settings deep link.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Prompter surfaces messages to the user.
type Prompter interface {
	// Alert reports a failure that stopped the flow.
	Alert(title, message string)
	// Notice is a soft, non-blocking message.
	Notice(message string)
	// Confirm asks the user to opt in to action and reports the answer.
	Confirm(ctx context.Context, title, message, action string) bool
}

// Settings opens the OS settings page for this app.
type Settings interface {
	Open(ctx context.Context) error
}

// OfferSettings shows message and opens settings only if the user accepts.
// It reports whether settings were opened.
func OfferSettings(ctx context.Context, p Prompter, s Settings, title, message string) (bool, error) {
	if s == nil || !p.Confirm(ctx, title, message, "Open Settings") {
		return false, nil
	}
	if err := s.Open(ctx); err != nil {
		return false, fmt.Errorf("open settings: %w", err)
	}
	return true, nil
}

// Terminal prompts on a line-oriented terminal.
type Terminal struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

func (t *Terminal) Alert(title, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "! %s: %s\n", title, message)
}

func (t *Terminal) Notice(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "  %s\n", message)
}

func (t *Terminal) Confirm(ctx context.Context, title, message, action string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "? %s: %s\n  %s? [y/N] ", title, message, action)

	answer := make(chan string, 1)
	go func() {
		line, _ := t.in.ReadString('\n')
		answer <- line
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(t.out)
		return false
	case line := <-answer:
		line = strings.ToLower(strings.TrimSpace(line))
		return line == "y" || line == "yes"
	}
}

// CommandSettings runs an external opener, e.g. xdg-open on the grants
// file the permission backend reads.
type CommandSettings struct {
	Command string
	Target  string
}

func (c CommandSettings) Open(ctx context.Context) error {
	if c.Command == "" {
		return fmt.Errorf("no settings opener configured")
	}
	fields := strings.Fields(c.Command)
	args := append(fields[1:], c.Target)
	return exec.CommandContext(ctx, fields[0], args...).Run()
}
