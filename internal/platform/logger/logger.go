package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger keeps the key/value call style used across the service
// (Info(msg, "key", value, ...)) on top of zap's sugared logger.
type Logger struct {
	sugar *zap.SugaredLogger
}

// NewLogger builds a logger from LOG_* environment variables.
func NewLogger() *Logger {
	return New(DefaultConfig())
}

func New(cfg *LoggerConfig) *Logger {
	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.Level = zap.NewAtomicLevelAt(cfg.ZapLevel())
	if cfg.Format == "console" || cfg.Format == "text" {
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	switch cfg.OutputFile {
	case "", "stdout", "stderr":
		out := cfg.OutputFile
		if out == "" {
			out = "stdout"
		}
		zapConfig.OutputPaths = []string{out}
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "logger: cannot create log directory for %s, using stdout: %v\n", cfg.OutputFile, err)
			zapConfig.OutputPaths = []string{"stdout"}
		} else {
			zapConfig.OutputPaths = []string{cfg.OutputFile, "stdout"}
		}
	}

	base, err := zapConfig.Build(zap.AddCallerSkip(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: falling back to default production logger: %v\n", err)
		base, _ = zap.NewProduction()
	}
	return &Logger{sugar: base.Sugar()}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// Named returns a sub-logger for a component.
func (l *Logger) Named(name string) *Logger {
	return &Logger{sugar: l.sugar.Named(name)}
}

// With returns a logger that always adds the given key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...)}
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.sugar.Fatalw(msg, keysAndValues...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
