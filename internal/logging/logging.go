// Package logging builds the slog handlers used by the gear.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// KeyCritical marks records of failures that abort the run
const KeyCritical = "critical"

// NewTerminalHandler returns a human readable handler writing to w. Colors are
// only used when w is a terminal, so logs captured by the platform stay plain.
func NewTerminalHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    !isTerminal(w),
	})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Critical logs msg at error level marked as critical
func Critical(logger *slog.Logger, msg string, args ...any) {
	logger.Error(msg, append([]any{KeyCritical, true}, args...)...)
}
