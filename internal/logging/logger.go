// Package logging configures structured logging with logrus.
//
// Every import run carries a run ID in its context. Loggers obtained through
// FromContext include it as the run_id field, so all entries written for one
// run can be correlated.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type ctxKey int

const runIDKey ctxKey = iota

// Setup configures the standard logrus logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
//
// Use "json" when logs are shipped to a collector and "text" on a terminal.
func Setup(level, format string) {
	SetupWriter(os.Stderr, level, format)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, level, format string) {
	logrus.SetOutput(w)
	logrus.SetLevel(parseLevel(level))

	if strings.ToLower(format) == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// parseLevel converts a string log level to a logrus.Level.
func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// ContextWithRunID returns a copy of ctx carrying the import run ID.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunID returns the run ID stored in ctx, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// FromContext returns a log entry enriched with the run ID from ctx.
//
// Usage:
//
//	logging.FromContext(ctx).WithField("rows", n).Info("import finished")
func FromContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(logrus.StandardLogger())
	if id := RunID(ctx); id != "" {
		entry = entry.WithField("run_id", id)
	}
	return entry
}

// WithFields returns a log entry with the run ID and additional fields.
//
// Usage:
//
//	log := logging.WithFields(ctx, logrus.Fields{
//	    "kind":  "results",
//	    "batch": batchID,
//	})
//	log.Info("import started")
func WithFields(ctx context.Context, fields logrus.Fields) *logrus.Entry {
	return FromContext(ctx).WithFields(fields)
}
