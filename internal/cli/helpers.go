package cli

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/aretw0/arbor/internal/logging"
)

// createLogger configures the application logger. In debug mode it
// writes to Stderr to keep Stdout for the flow UI.
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// printSystemMessage prints a standardized system message to stdout.
func printSystemMessage(format string, args ...any) {
	fmt.Printf(">>> %s\n", fmt.Sprintf(format, args...))
}

// isInteractive reports whether stdout is a terminal. Non-interactive
// runs skip the banner and markdown rendering.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
