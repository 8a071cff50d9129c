package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const defaultWidth = 80

// RenderFunc turns a reply body into printable text.
type RenderFunc func(string) (string, error)

// Plain returns the body unchanged with a trailing newline.
func Plain(body string) (string, error) {
	return strings.TrimRight(body, "\n") + "\n", nil
}

// NewRenderer returns a glamour renderer when f is a terminal and Plain
// otherwise. Word wrap follows the terminal width.
func NewRenderer(f *os.File) RenderFunc {
	if f == nil || !term.IsTerminal(int(f.Fd())) {
		return Plain
	}

	width := defaultWidth
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		width = w
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return Plain
	}
	return func(body string) (string, error) {
		// Hard line breaks.
		return r.Render(strings.ReplaceAll(body, "\n", "  \n"))
	}
}
