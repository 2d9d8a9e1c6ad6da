package logging

import (
	"io"
	"log/slog"
)

// New returns a text logger with debug output for local runs and a JSON
// logger at info level everywhere else.
func New(env string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if env == "local" {
		opts.Level = slog.LevelDebug
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func Init(env string, w io.Writer) {
	slog.SetDefault(New(env, w))
}
