package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/term"
)

// Console implements Progress, Prompter and Notifier on a terminal. When
// stdin is not a terminal, prompts fall back to their defaults so scripted
// runs never block.
type Console struct {
	out         io.Writer
	in          *bufio.Reader
	interactive bool
	canceled    atomic.Bool

	total int
	title string
}

// NewConsole creates a console UI reading from stdin and writing to stdout.
func NewConsole() *Console {
	return &Console{
		out:         os.Stdout,
		in:          bufio.NewReader(os.Stdin),
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

// Start begins a progress run.
func (c *Console) Start(title string, total int) {
	c.title = title
	c.total = total
	fmt.Fprintf(c.out, "%s (%d items)\n", title, total) //nolint:errcheck
}

// Update prints the current step and message.
func (c *Console) Update(step int, message string) {
	fmt.Fprintf(c.out, "[%d/%d] %s\n", step+1, c.total, message) //nolint:errcheck
}

// End finishes the progress run.
func (c *Console) End() {
	fmt.Fprintf(c.out, "%s: done\n", c.title) //nolint:errcheck
}

// Cancel flags the run as canceled. Wired to signal handling in main.
func (c *Console) Cancel() {
	c.canceled.Store(true)
}

// Canceled reports whether a cancellation was requested.
func (c *Console) Canceled() bool {
	return c.canceled.Load()
}

// Text prompts for a line of input, returning preset when not interactive
// or on empty input.
func (c *Console) Text(title, preset string) string {
	if !c.interactive {
		return preset
	}
	fmt.Fprintf(c.out, "%s [%s]: ", title, preset) //nolint:errcheck
	line, err := c.in.ReadString('\n')
	if err != nil {
		return preset
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return preset
	}
	return line
}

// Select prompts for a numbered choice, returning -1 when not interactive
// or on invalid input.
func (c *Console) Select(title string, options []string) int {
	if !c.interactive || len(options) == 0 {
		return -1
	}
	fmt.Fprintf(c.out, "%s:\n", title) //nolint:errcheck
	for i, opt := range options {
		fmt.Fprintf(c.out, "  %d) %s\n", i+1, opt) //nolint:errcheck
	}
	fmt.Fprintf(c.out, "choice [1]: ") //nolint:errcheck
	line, err := c.in.ReadString('\n')
	if err != nil {
		return -1
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(options) {
		return -1
	}
	return n - 1
}

// Notify prints a timed notification message.
func (c *Console) Notify(message string) {
	fmt.Fprintf(c.out, "note: %s\n", message) //nolint:errcheck
}

// Warn prints a warning message.
func (c *Console) Warn(message string) {
	fmt.Fprintf(c.out, "warning: %s\n", message) //nolint:errcheck
}
