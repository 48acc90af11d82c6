package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the cueline banner to w with a warm stage-light gradient.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"                       _ _", "#fde68a"},
		{"   ___ _   _  ___  ___| (_)_ __   ___", "#fcd34d"},
		{"  / __| | | |/ _ \\/ _ \\ | | '_ \\ / _ \\", "#fbbf24"},
		{" | (__| |_| |  __/  __/ | | | | |  __/", "#f59e0b"},
		{"  \\___|\\__,_|\\___|\\___|_|_|_| |_|\\___|", "#d97706"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
