package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const (
	// fieldRequestID is the name of the RequestID field added to every
	// entry written through a context aware Logger.
	fieldRequestID = "request_id"

	// fieldTxRef is the name of the transaction reference field.
	fieldTxRef = "tx_ref"
)

// Setup describes how the process wants its log entries written.
type Setup struct {
	IsDevelopment bool

	// IsText selects console encoding over JSON.
	IsText bool

	// FilePath, when set, also writes entries to a size rotated file.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewSetup returns a Setup with development friendly defaults.
func NewSetup() Setup {
	return Setup{
		IsDevelopment: true,
		IsText:        true,
		MaxSizeMB:     100,
		MaxBackups:    5,
		MaxAgeDays:    30,
	}
}

// NewLogger builds a Logger from the Setup.
//
// Entries always go to stderr. When a FilePath is set they are also written
// to a rotating file at that path.
func NewLogger(s Setup) *zap.Logger {
	var encC zapcore.EncoderConfig
	if s.IsDevelopment {
		encC = zap.NewDevelopmentEncoderConfig()
	} else {
		encC = zap.NewProductionEncoderConfig()
	}

	encC.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if s.IsText {
		enc = zapcore.NewConsoleEncoder(encC)
	} else {
		enc = zapcore.NewJSONEncoder(encC)
	}

	level := zap.InfoLevel
	if s.IsDevelopment {
		level = zap.DebugLevel
	}

	sink := zapcore.AddSync(os.Stderr)

	if len(s.FilePath) > 0 {
		rotated := &lumberjack.Logger{
			Filename:   s.FilePath,
			MaxSize:    s.MaxSizeMB,
			MaxBackups: s.MaxBackups,
			MaxAge:     s.MaxAgeDays,
		}

		sink = zapcore.NewMultiWriteSyncer(sink, zapcore.AddSync(rotated))
	}

	core := zapcore.NewCore(enc, sink, level)

	return zap.New(core, zap.AddCaller())
}

// NewLoggerFromContext returns the Logger in the Context.
//
// If no Logger was set a default development Logger is returned, so callers
// never have to nil check.
func NewLoggerFromContext(ctx context.Context) *zap.Logger {
	v := ctx.Value(KeyLogger)

	if v == nil {
		return NewLogger(NewSetup())
	}

	return v.(*zap.Logger)
}

// newLogger returns a Logger carrying the request scoped fields already in
// the Context.
func newLogger(ctx context.Context) *zap.Logger {
	logger := NewLoggerFromContext(ctx)

	return logger.With(zap.String(fieldRequestID, RequestIDFromContext(ctx)))
}
