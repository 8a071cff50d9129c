package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"  _           _        ", "#34d399"},
	{" | |__   ___ | |_ ___  ", "#10b981"},
	{" | '_ \\ / _ \\| __/ _ \\ ", "#059669"},
	{" | |_) | (_) | || (_) |", "#047857"},
	{" |_.__/ \\___/ \\__\\___/ ", "#065f46"},
}

// PrintBanner writes the boto banner to w, colored for the terminal profile
// of w. Non-terminal writers get plain ASCII.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
