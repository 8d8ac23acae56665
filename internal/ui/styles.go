package ui

import "fmt"

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent = 74  // blue
	colorCmd    = 250 // light gray
	colorMuted  = 245 // medium gray
	colorOK     = 114 // green
	colorWarn   = 179 // yellow
	colorError  = 203 // red
)

var noColor bool

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return render(colorCmd, s) }

func RenderOK(s string) string    { return render(colorOK, s) }
func RenderWarn(s string) string  { return render(colorWarn, s) }
func RenderError(s string) string { return render(colorError, s) }

// RenderStatus colors an order or health status by how far along or how
// well it is.
func RenderStatus(status string) string {
	switch status {
	case "delivered", "healthy", "SERVING", "created":
		return RenderOK(status)
	case "pending", "confirmed", "shipped", "updated":
		return RenderWarn(status)
	case "cancelled", "unhealthy", "NOT_SERVING", "deleted":
		return RenderError(status)
	default:
		return status
	}
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
