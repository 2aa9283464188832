// Package logger installs the process-wide structured logger.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Init installs a JSON slog handler writing to stdout as the default
// logger.  Development environments log at debug level.
func Init(env string) *slog.Logger {
	return InitTo(os.Stdout, env)
}

// InitTo is Init with an explicit writer.
func InitTo(w io.Writer, env string) *slog.Logger {
	level := slog.LevelInfo
	if env == "dev" || env == "development" || env == "local" {
		level = slog.LevelDebug
	}
	l := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(l)
	return l
}
