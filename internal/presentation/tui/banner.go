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
	{` _                               _    _ _   `, "#34d399"},
	{`| | ___  ___ ___  ___  _ __  | | _(_) |_ `, "#2dd4bf"},
	{`| |/ _ \/ __/ __|/ _ \| '_ \ | |/ / | __|`, "#22d3ee"},
	{`| |  __/\__ \__ \ (_) | | | ||   <| | |_ `, "#38bdf8"},
	{`|_|\___||___/___/\___/|_| |_||_|\_\_|\__|`, "#60a5fa"},
}

// PrintBanner writes the lessonkit banner, colored for the terminal profile.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
