// Package logger provides context-aware structured logging on top of
// logrus. Logs always go to stderr so that command output on stdout stays
// machine readable.
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultLevel is applied until Configure is called
const DefaultLevel = logrus.InfoLevel

var (
	// G is a shorthand for GetLogger
	G = GetLogger
	// L is the process-wide logger entry used when the context carries none
	L = logrus.NewEntry(newLogger())
)

type loggerKey struct{}

// WithLogger attaches entry to ctx
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, entry.WithContext(ctx))
}

// WithComponent returns a context whose logger carries a component field
func WithComponent(ctx context.Context, component string) context.Context {
	return WithLogger(ctx, GetLogger(ctx).WithField("component", component))
}

// GetLogger returns the entry stored in ctx, or L bound to ctx
func GetLogger(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return entry
	}
	return L.WithContext(ctx)
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(DefaultLevel)
	applyFormat(l, "text")
	return l
}

func applyFormat(l *logrus.Logger, format string) {
	if format == "json" {
		l.Formatter = &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "logLevel",
				logrus.FieldKeyMsg:   "message",
			},
			TimestampFormat: time.RFC3339Nano,
		}
		return
	}
	l.Formatter = &logrus.TextFormatter{
		TimestampFormat: time.RFC3339Nano,
		FullTimestamp:   true,
	}
}

// Configure sets the level and format ("text" or "json") of the global
// logger. An empty level keeps the current one.
func Configure(level, format string) error {
	switch format {
	case "", "text", "fmt", "json":
	default:
		return errors.Errorf("unsupported log format %q", format)
	}
	if level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			return errors.Wrap(err, "invalid log level")
		}
		L.Logger.SetLevel(parsed)
	}
	applyFormat(L.Logger, format)
	return nil
}

// SetLogOutput redirects the global logger
func SetLogOutput(w io.Writer) {
	L.Logger.SetOutput(w)
}
