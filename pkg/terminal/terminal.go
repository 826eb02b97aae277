// Package terminal provides width detection and box drawing for CLI output.
package terminal

import (
	"os"
	"strconv"
)

// Width bounds used when the terminal reports nothing useful.
const (
	DefaultWidth = 80
	MinWidth     = 60
	MaxWidth     = 120
)

// Config holds terminal rendering configuration.
type Config struct {
	Width   int
	NoColor bool
}

// NewConfig builds a Config from the environment. noColor forces colors off
// regardless of NO_COLOR.
func NewConfig(noColor bool) Config {
	return Config{
		Width:   DetectWidth(),
		NoColor: noColor || os.Getenv("NO_COLOR") != "",
	}
}

// DetectWidth reads COLUMNS and clamps it to [MinWidth, MaxWidth].
// A missing or invalid value yields DefaultWidth.
func DetectWidth() int {
	columns := os.Getenv("COLUMNS")
	if columns == "" {
		return DefaultWidth
	}

	width, err := strconv.Atoi(columns)
	if err != nil || width <= 0 {
		return DefaultWidth
	}

	return Clamp(width)
}

// Clamp bounds width to [MinWidth, MaxWidth].
func Clamp(width int) int {
	return min(max(width, MinWidth), MaxWidth)
}
