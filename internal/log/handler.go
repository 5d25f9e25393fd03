package log

import (
	"log/slog"
	"os"
)

// NewCLIHandler returns a slog.Handler tuned for interactive terminal use:
// messages go to stderr, timestamps are omitted (a CLI run is short enough
// that the operator doesn't need them), and the level filter is set to the
// verbosity the caller derived from --quiet/--verbose/--debug.
func NewCLIHandler(level slog.Level) slog.Handler {
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})
}
