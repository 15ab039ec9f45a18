package ui

import "fmt"

// ANSI256 color codes for evd output.
const (
	colorAccent = 108 // sage green, used for headings
	colorMuted  = 245 // medium gray, used for labels
)

var noColor bool

// RenderAccent returns s in the accent color.
func RenderAccent(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorAccent, s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorMuted, s)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
