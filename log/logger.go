// Package log provides structured logging with work/task context.
//
// Two logger variants are available:
//   - Logger: non-sugared zap.Logger for the connector/engine paths
//     (structured fields, no per-call formatting cost).
//   - SugaredLogger: printf-style logging for the CLI surface.
//
// Use Logger.Sugar() to obtain a SugaredLogger when needed.
package log

import (
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger, pre-populated with the WorkId context shared by
// every submission and wait call against that work.
type Logger struct {
	zap *zap.Logger
}

// SugaredLogger wraps zap.SugaredLogger for printf-style CLI output.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger creates a logger carrying workID as context, plus a fresh
// run_id correlating every line this client instance emits across
// multiple works — the same role the teacher's fanout runtime gives its
// per-run uuid, scoped here to one client session instead of one task
// fan-out. Output defaults to os.Stderr. workID may be empty before a work
// identifier is known.
func NewLogger(workID string) *Logger {
	return newLoggerWithWriter(workID, uuid.New().String(), os.Stderr)
}

// NewLoggerWithRunID is like NewLogger but accepts an explicit run_id
// instead of minting one, for tests that need deterministic output.
func NewLoggerWithRunID(workID, runID string) *Logger {
	return newLoggerWithWriter(workID, runID, os.Stderr)
}

// WithOutput returns a new logger with a different output writer.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	core := zapcore.NewCore(jsonEncoder(), zapcore.AddSync(w), zapcore.DebugLevel)
	return &Logger{zap: l.zap.WithOptions(zap.WrapCore(func(zapcore.Core) zapcore.Core { return core }))}
}

// WithTaskID returns a logger with an additional task_id field, for use
// once a task identifier has been minted.
func (l *Logger) WithTaskID(taskID string) *Logger {
	return &Logger{zap: l.zap.With(zap.String("task_id", taskID))}
}

func newLoggerWithWriter(workID, runID string, w io.Writer) *Logger {
	core := zapcore.NewCore(jsonEncoder(), zapcore.AddSync(w), zapcore.DebugLevel)

	fields := []zap.Field{zap.String("run_id", runID)}
	if workID != "" {
		fields = append(fields, zap.String("work_id", workID))
	}

	return &Logger{zap: zap.New(core).With(fields...)}
}

func jsonEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	})
}

// Debug logs a debug message with structured fields.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs an info message with structured fields.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, zap.Any("fields", fields))
}

// Warn logs a warning message with structured fields.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs an error message with structured fields.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, zap.Any("fields", fields))
}

// Sugar returns a SugaredLogger for printf-style logging on the CLI
// surface.
func (l *Logger) Sugar() *SugaredLogger {
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

// Debugf logs a debug message with printf-style formatting.
func (s *SugaredLogger) Debugf(template string, args ...any) { s.sugar.Debugf(template, args...) }

// Infof logs an info message with printf-style formatting.
func (s *SugaredLogger) Infof(template string, args ...any) { s.sugar.Infof(template, args...) }

// Warnf logs a warning message with printf-style formatting.
func (s *SugaredLogger) Warnf(template string, args ...any) { s.sugar.Warnf(template, args...) }

// Errorf logs an error message with printf-style formatting.
func (s *SugaredLogger) Errorf(template string, args ...any) { s.sugar.Errorf(template, args...) }

// Errorw logs an error with alternating key/value pairs. This satisfies the
// completion connector's Logger interface: every poll-loop error is logged
// this way and the loop continues.
func (s *SugaredLogger) Errorw(msg string, keysAndValues ...interface{}) {
	s.sugar.Errorw(msg, keysAndValues...)
}

// With returns a SugaredLogger with additional context fields.
func (s *SugaredLogger) With(args ...any) *SugaredLogger {
	return &SugaredLogger{sugar: s.sugar.With(args...)}
}
