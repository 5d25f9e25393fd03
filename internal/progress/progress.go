// Package progress defines the progress-reporting capability the build
// pipeline consumes, plus a terminal-aware default implementation that
// redraws a single line per bar.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// Bar is a single progress indicator handle: a caller sets a message and a
// position, can spawn a nested sub-bar, and clears it when done.
type Bar interface {
	SetMessage(msg string)
	SetPosition(pos uint64)
	NewBar(total uint64, label string) Bar
	FinishAndClear()
}

// Sink hands a top-level Bar handle to a callback, letting the caller drive
// progress reporting without depending on the concrete renderer.
type Sink interface {
	Map(f func(Bar))
}

// IsTerminalFunc checks whether a file descriptor is a terminal. Overridable
// in tests.
var IsTerminalFunc = term.IsTerminal

// ShouldShow reports whether progress output should be rendered, i.e.
// stdout is attached to a terminal.
func ShouldShow() bool {
	return IsTerminalFunc(int(os.Stdout.Fd()))
}

// TerminalSink renders bars to an io.Writer using carriage-return redraws.
type TerminalSink struct {
	out io.Writer
	mu  sync.Mutex
}

// NewTerminalSink creates a Sink that writes to out.
func NewTerminalSink(out io.Writer) *TerminalSink {
	return &TerminalSink{out: out}
}

// Map invokes f with a fresh top-level bar handle.
func (s *TerminalSink) Map(f func(Bar)) {
	f(&terminalBar{sink: s, label: "", start: time.Now()})
}

type terminalBar struct {
	sink    *TerminalSink
	label   string
	total   uint64
	pos     uint64
	start   time.Time
	lastMsg string
}

func (b *terminalBar) SetMessage(msg string) {
	b.lastMsg = msg
	b.render()
}

func (b *terminalBar) SetPosition(pos uint64) {
	b.pos = pos
	b.render()
}

func (b *terminalBar) NewBar(total uint64, label string) Bar {
	return &terminalBar{sink: b.sink, label: label, total: total, start: time.Now()}
}

func (b *terminalBar) FinishAndClear() {
	b.sink.mu.Lock()
	defer b.sink.mu.Unlock()
	fmt.Fprintf(b.sink.out, "\r%s\r", strings.Repeat(" ", 80))
}

func (b *terminalBar) render() {
	b.sink.mu.Lock()
	defer b.sink.mu.Unlock()

	line := fmt.Sprintf("\r   %s", b.label)
	if b.total > 0 {
		percent := float64(b.pos) / float64(b.total) * 100
		if percent > 100 {
			percent = 100
		}
		line += fmt.Sprintf(" %3.0f%%", percent)
	}
	if b.lastMsg != "" {
		line += " " + b.lastMsg
	}
	if len(line) < 80 {
		line += strings.Repeat(" ", 80-len(line))
	}
	fmt.Fprint(b.sink.out, line)
}

// NoopSink discards all progress updates. Used by non-interactive callers
// and tests.
type NoopSink struct{}

func (NoopSink) Map(f func(Bar)) { f(noopBar{}) }

type noopBar struct{}

func (noopBar) SetMessage(string)         {}
func (noopBar) SetPosition(uint64)        {}
func (noopBar) NewBar(uint64, string) Bar { return noopBar{} }
func (noopBar) FinishAndClear()           {}

// Default returns a TerminalSink when stdout is a terminal, else a NoopSink.
func Default() Sink {
	if ShouldShow() {
		return NewTerminalSink(os.Stdout)
	}
	return NoopSink{}
}
