package safe

import (
	"log/slog"
	"runtime/debug"
	"strings"
)

const maxStackFrames = 20

func Run(fn func()) {
	RunWithLog(fn, "safe.Run")
}

// RunWithLog executes fn and logs any panic with a trimmed stack trace.
func RunWithLog(fn func(), component string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered",
				slog.Any("recover", r),
				slog.String("component", component),
				slog.String("stack", stackTrace()),
			)
		}
	}()

	fn()
}

// Go starts fn on a new goroutine guarded by RunWithLog.
func Go(component string, fn func()) {
	go RunWithLog(fn, component)
}

func stackTrace() string {
	lines := strings.Split(string(debug.Stack()), "\n")

	formatted := []string{"Stack trace:"}
	for i, line := range lines {
		if i >= maxStackFrames*2 {
			formatted = append(formatted, "  ... (truncated)")
			break
		}
		if line = strings.TrimSpace(line); line != "" {
			formatted = append(formatted, "  "+line)
		}
	}
	return strings.Join(formatted, "\n")
}
