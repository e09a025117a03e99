package tui

import (
	"fmt"
	"io"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`                  _                 `, "#f59e0b"},
	{` _ __   __ _| | __ ___   _____ _ __ `, "#f97316"},
	{`| '_ \ / _' | |/ _' \ \ / / _ \ '__|`, "#ef4444"},
	{`| |_) | (_| | | (_| |\ V /  __/ |   `, "#ec4899"},
	{`| .__/ \__,_|_|\__,_| \_/ \___|_|   `, "#d946ef"},
	{`|_|                                 `, "#a855f7"},
}

// PrintBanner writes the palaver banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
