package logger

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
)

// Level classifies a log entry for LogDepth.
type Level int

const (
	LevelVerbose Level = -1
	LevelInfo    Level = 0
	LevelWarn    Level = 1
	LevelError   Level = 2
)

// Info adds an info level entry to the Logger in the Context.
func Info(ctx context.Context, format string, values ...interface{}) error {
	return LogDepth(ctx, LevelInfo, 1, format, values...)
}

// Verbose adds a verbose level entry to the Logger in the Context.
func Verbose(ctx context.Context, format string, values ...interface{}) error {
	return LogDepth(ctx, LevelVerbose, 1, format, values...)
}

// Warn adds a warning level entry to the Logger in the Context.
func Warn(ctx context.Context, format string, values ...interface{}) error {
	return LogDepth(ctx, LevelWarn, 1, format, values...)
}

// Error adds an error level entry to the Logger in the Context.
func Error(ctx context.Context, format string, values ...interface{}) error {
	return LogDepth(ctx, LevelError, 1, format, values...)
}

// Fatal adds an error level entry to the Logger in the Context, then exits
// the process.
func Fatal(ctx context.Context, format string, values ...interface{}) {
	LogDepth(ctx, LevelError, 1, format, values...)
	os.Exit(1)
}

// Elapsed logs the time since start, labeled with name. Use with defer to
// time a function.
func Elapsed(ctx context.Context, start time.Time, name string) {
	NewLoggerFromContext(ctx).
		WithOptions(zap.AddCallerSkip(1)).
		Sugar().
		Debugf("%s took %v", name, time.Since(start))
}

// LogDepth adds an entry at the given level to the Logger in the Context,
// attributing it to the caller the given depth up the stack.
func LogDepth(ctx context.Context, level Level, depth int,
	format string, values ...interface{}) error {

	l := NewLoggerFromContext(ctx).
		WithOptions(zap.AddCallerSkip(depth + 1)).
		Sugar()

	switch level {
	case LevelVerbose:
		l.Debugf(format, values...)
	case LevelWarn:
		l.Warnf(format, values...)
	case LevelError:
		l.Errorf(format, values...)
	default:
		l.Infof(format, values...)
	}

	return nil
}
