package present

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// stream caches what ztr needs to know about one standard stream. Each
// value is computed on first use.
type stream struct {
	tty      func() bool
	renderer func() *lipgloss.Renderer
	styles   func() Styles
}

func newStream(f *os.File) *stream {
	s := &stream{}
	s.tty = sync.OnceValue(func() bool {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	})
	s.renderer = sync.OnceValue(func() *lipgloss.Renderer {
		return lipgloss.NewRenderer(f, termenv.WithColorCache(true))
	})
	s.styles = sync.OnceValue(func() Styles {
		return MakeStyles(s.renderer())
	})
	return s
}

var (
	stdin  = newStream(os.Stdin)
	stdout = newStream(os.Stdout)
	stderr = newStream(os.Stderr)
)

// IsInputTTY reports whether stdin is a terminal.
func IsInputTTY() bool { return stdin.tty() }

// IsOutputTTY reports whether stdout is a terminal.
func IsOutputTTY() bool { return stdout.tty() }

// IsErrorTTY reports whether stderr is a terminal. The progress view draws
// there.
func IsErrorTTY() bool { return stderr.tty() }

// StdoutRenderer is the lipgloss renderer for stdout.
func StdoutRenderer() *lipgloss.Renderer { return stdout.renderer() }

// StdoutStyles are styles bound to StdoutRenderer.
func StdoutStyles() Styles { return stdout.styles() }

// StderrRenderer is the lipgloss renderer for stderr.
func StderrRenderer() *lipgloss.Renderer { return stderr.renderer() }

// StderrStyles are styles bound to StderrRenderer.
func StderrStyles() Styles { return stderr.styles() }
