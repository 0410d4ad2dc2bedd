// Package output renders setup progress on the terminal: per-item progress
// bars, byte-counted download bars, a spinner for operations with no
// measurable progress, and the colored check lines used by the summary.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// writerIsTTY returns true if the given writer exposes an Fd() method
// (e.g. *os.File) and that fd is a terminal. Falls back to false for
// plain io.Writer values such as *bytes.Buffer.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// ProgressBar displays a progress bar with percentage and label.
// Example: [=========>          ]  45% Installing dependencies (2/5)
type ProgressBar struct {
	total   int64
	current int64
	label   string
	width   int
	bytes   bool
	mu      sync.Mutex
	writer  io.Writer
}

// NewProgress creates a progress bar over a known item count.
func NewProgress(total int, label string) *ProgressBar {
	return &ProgressBar{
		total:  int64(total),
		label:  label,
		width:  40,
		writer: os.Stdout,
	}
}

// NewByteProgress creates a progress bar over a known byte total, as
// reported by a download's Content-Length. Use a spinner instead when the
// length is unknown.
func NewByteProgress(total int64, label string) *ProgressBar {
	return &ProgressBar{
		total:  total,
		label:  label,
		width:  40,
		bytes:  true,
		writer: os.Stdout,
	}
}

// SetWriter sets the output writer (useful for testing).
func (p *ProgressBar) SetWriter(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writer = w
}

// Increment advances the progress by 1 and redraws.
func (p *ProgressBar) Increment() {
	p.Add(1)
}

// Add advances the progress by n and redraws.
func (p *ProgressBar) Add(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current += n
	if p.current > p.total {
		p.current = p.total
	}
	p.render()
}

// SetLabel updates the label shown next to the bar.
func (p *ProgressBar) SetLabel(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.label = label
}

// Finish completes the bar and moves to a new line.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	alreadyDone := p.current == p.total
	p.current = p.total

	if writerIsTTY(p.writer) {
		p.render()
		fmt.Fprintln(p.writer)
	} else if !alreadyDone {
		// Non-TTY render only emits on completion; avoid a duplicate line
		// when the last Add already hit the total.
		p.render()
	}
}

// render draws the bar (must be called with lock held).
func (p *ProgressBar) render() {
	percentage := int64(0)
	filled := 0
	if p.total > 0 {
		percentage = p.current * 100 / p.total
		filled = int(p.current * int64(p.width) / p.total)
	}

	var bar strings.Builder
	bar.WriteString("[")
	for i := 0; i < p.width; i++ {
		switch {
		case i < filled-1:
			bar.WriteString("=")
		case i == filled-1:
			bar.WriteString(">")
		default:
			bar.WriteString(" ")
		}
	}
	bar.WriteString("]")

	suffix := p.label
	if p.bytes {
		suffix = fmt.Sprintf("%s (%s/%s)", p.label, FormatSize(p.current), FormatSize(p.total))
	}

	if writerIsTTY(p.writer) {
		fmt.Fprintf(p.writer, "\r%s %3d%% %s", bar.String(), percentage, suffix)
	} else if p.current == p.total {
		// Non-TTY: only emit on completion so logs stay clean.
		fmt.Fprintf(p.writer, "%s %3d%% %s\n", bar.String(), percentage, suffix)
	}
}

// Spinner displays an animated spinner with a message while an external
// operation with no measurable progress is in flight. The ticker goroutine
// is joined deterministically by Stop.
type Spinner struct {
	message string
	running bool
	chars   []string
	mu      sync.Mutex
	writer  io.Writer
	ticker  *time.Ticker
	done    chan struct{}
}

// NewSpinner creates a spinner. On a non-TTY writer the animation is
// skipped and the message printed once so log output stays clean.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message: message,
		chars:   []string{"|", "/", "-", "\\"},
		writer:  os.Stdout,
		done:    make(chan struct{}),
	}
}

// SetWriter sets the output writer (useful for testing).
func (s *Spinner) SetWriter(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer = w
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true

	if !writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "%s...\n", s.message)
		return
	}

	s.ticker = time.NewTicker(100 * time.Millisecond)

	go func() {
		idx := 0
		for {
			select {
			case <-s.ticker.C:
				s.mu.Lock()
				if !s.running {
					s.mu.Unlock()
					return
				}
				fmt.Fprintf(s.writer, "\r%s  %s", s.chars[idx], s.message)
				idx = (idx + 1) % len(s.chars)
				s.mu.Unlock()

			case <-s.done:
				return
			}
		}
	}()
}

// UpdateMessage updates the spinner message while it's running.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

// Stop stops the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.done)

	// Clear the line only on a TTY; on non-TTY the \r does not overwrite.
	if writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
	}
}

// StopWithMessage stops the spinner and displays a final message.
func (s *Spinner) StopWithMessage(message string) {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.writer, message)
}

// FormatSize converts bytes to a human-readable size.
func FormatSize(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)

	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.0f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.0f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
