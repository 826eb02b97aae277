package terminal

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
)

// Ellipsis is appended to truncated strings.
const Ellipsis = "..."

// Width returns the display width of s, ignoring ANSI escape sequences.
func Width(s string) int {
	return text.StringWidthWithoutEscSequences(s)
}

// Truncate shortens s to maxWidth display columns, ending with an ellipsis
// when anything was cut.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}

	if Width(s) <= maxWidth {
		return s
	}

	if maxWidth <= len(Ellipsis) {
		return strings.Repeat(".", maxWidth)
	}

	return text.Trim(s, maxWidth-len(Ellipsis)) + Ellipsis
}

// PadRight pads s with spaces up to width display columns.
func PadRight(s string, width int) string {
	w := Width(s)
	if w >= width {
		return s
	}

	return s + strings.Repeat(" ", width-w)
}
