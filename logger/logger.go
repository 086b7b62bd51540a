// Package logger provides wrappers around slog.
package logger // import "go.yhsif.com/img2gray/logger"

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"go.yhsif.com/ctxslog"
)

// Format values accepted by Options.Format.
const (
	FormatAuto = "auto"
	FormatJSON = "json"
	FormatText = "text"
)

// Options describes logger construction parameters.
type Options struct {
	// debug, info, warn or error. Defaults to info.
	Level string

	// FormatAuto (the default) picks FormatText when Output is a terminal and
	// FormatJSON otherwise.
	Format string

	// Defaults to os.Stderr.
	Output io.Writer
}

// New constructs a slog logger using the provided options.
//
// The handler is wrapped with ctxslog.ContextHandler, so attributes attached
// to a context via ctxslog.Attach show up in every *Context log call.
// ctxslog.Attach builds on slog.Default(), so the returned logger only takes
// effect for attached contexts after it's installed with slog.SetDefault, see
// SetDefault.
func New(opts Options) (*slog.Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
	}

	var handler slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	default:
		return nil, fmt.Errorf("logger.New: unsupported format %q", opts.Format)
	case "", FormatAuto:
		if isTerminal(out) {
			handler = slog.NewTextHandler(out, handlerOpts)
		} else {
			handler = slog.NewJSONHandler(out, handlerOpts)
		}
	case FormatText:
		handler = slog.NewTextHandler(out, handlerOpts)
	case FormatJSON:
		handler = slog.NewJSONHandler(out, handlerOpts)
	}
	return slog.New(ctxslog.ContextHandler(handler)), nil
}

// ParseLevel converts a level name to slog.Level, unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	default:
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// SetDefault installs l as slog.Default() and returns a function restoring
// the previous default.
func SetDefault(l *slog.Logger) (restore func()) {
	prev := slog.Default()
	slog.SetDefault(l)
	return func() {
		slog.SetDefault(prev)
	}
}

type logKeyType struct{}

var logKey logKeyType

// For returns the logger stored in ctx, or slog.Default().
func For(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(logKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// SetContext returns a copy of ctx carrying l.
func SetContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, logKey, l)
}
