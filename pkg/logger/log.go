package logger

import (
	"context"
	"fmt"
	"strings"

	"limitbook/pkg/errors"
	"limitbook/pkg/util"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Interface wraps the Logger methods so collaborators can take either the
// real logger or a test double.
type Interface interface {
	Debug(message string, fields ...Field)
	DebugContext(ctx context.Context, message string, fields ...Field)
	Error(err error, fields ...Field)
	ErrorContext(ctx context.Context, err error, fields ...Field)
	GetZap() *zap.Logger
	Info(message string, fields ...Field)
	InfoContext(ctx context.Context, message string, fields ...Field)
	Sync() error
	Warn(message string, fields ...Field)
	WarnContext(ctx context.Context, message string, fields ...Field)
}

// Logger is a thin wrapper around zap.Logger for structured logging.
type Logger struct {
	logger *zap.Logger
}

// Field holds one key-value pair written to the log entry.
type Field struct {
	Key   string
	Value any
}

// Level names the minimum severity that will be logged.
type Level string

const (
	// DebugLevel logs everything.
	DebugLevel Level = "debug"
	// InfoLevel logs info and above.
	InfoLevel Level = "info"
	// WarnLevel logs warnings and errors.
	WarnLevel Level = "warn"
	// ErrorLevel logs errors only.
	ErrorLevel Level = "error"
)

// zapLevel maps a level name to zap's. Unknown names fall back to info,
// zap's production default.
func (level Level) zapLevel() zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Option adjusts the zap production config the logger is built from.
type Option func(*zap.Config)

// WithLevel sets the minimum severity that will be logged.
func WithLevel(level Level) Option {
	return func(cfg *zap.Config) {
		cfg.Level = zap.NewAtomicLevelAt(level.zapLevel())
	}
}

// NewLogger creates a JSON production logger.
func NewLogger(opts ...Option) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.MessageKey = "message"
	for _, opt := range opts {
		opt(&cfg)
	}

	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{logger: zl}, nil
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	return l.logger.Sync()
}

// GetZap returns the underlying zap.Logger.
func (l *Logger) GetZap() *zap.Logger {
	return l.logger
}

// Info writes a log entry with severity level info.
func (l *Logger) Info(message string, fields ...Field) {
	l.logger.Info(message, convertFields(fields)...)
}

// InfoContext is Info plus the request id carried by ctx.
func (l *Logger) InfoContext(ctx context.Context, message string, fields ...Field) {
	l.Info(message, appendRequestID(ctx, fields)...)
}

// Warn writes a log entry with severity level warn.
func (l *Logger) Warn(message string, fields ...Field) {
	l.logger.Warn(message, convertFields(fields)...)
}

// WarnContext is Warn plus the request id carried by ctx.
func (l *Logger) WarnContext(ctx context.Context, message string, fields ...Field) {
	l.Warn(message, appendRequestID(ctx, fields)...)
}

// Debug writes a log entry with severity level debug.
func (l *Logger) Debug(message string, fields ...Field) {
	l.logger.Debug(message, convertFields(fields)...)
}

// DebugContext is Debug plus the request id carried by ctx.
func (l *Logger) DebugContext(ctx context.Context, message string, fields ...Field) {
	l.Debug(message, appendRequestID(ctx, fields)...)
}

// Error writes the error at error level. When the error carries a stack trace
// (see errors.StackTracer), that trace replaces zap's own capture so the entry
// points at where the error originated rather than at this call site.
func (l *Logger) Error(err error, fields ...Field) {
	var stacktrace string
	if tracer, ok := err.(errors.StackTracer); ok {
		stacktrace = strings.TrimSpace(fmt.Sprintf("%+v", tracer.StackTrace()))
	}

	if ce := l.logger.Check(zapcore.ErrorLevel, err.Error()); ce != nil {
		if stacktrace != "" {
			ce.Stack = stacktrace
		}
		ce.Write(convertFields(fields)...)
	}
}

// ErrorContext is Error plus the request id carried by ctx.
func (l *Logger) ErrorContext(ctx context.Context, err error, fields ...Field) {
	l.Error(err, appendRequestID(ctx, fields)...)
}

func convertFields(fields []Field) []zapcore.Field {
	zapFields := make([]zapcore.Field, 0, len(fields))
	for _, field := range fields {
		zapFields = append(zapFields, zap.Any(field.Key, field.Value))
	}
	return zapFields
}

func appendRequestID(ctx context.Context, fields []Field) []Field {
	return append(fields, Field{Key: "request_id", Value: util.GetRequestID(ctx)})
}
