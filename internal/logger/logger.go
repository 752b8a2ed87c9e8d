// Package logger provides structured logging for apywatch.
package logger

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	defaultLogger *zap.SugaredLogger
	mu            sync.RWMutex
)

func init() {
	defaultLogger = build(Options{})
}

// Options configures the logger.
type Options struct {
	Debug  bool        // Enable debug level logging
	Quiet  bool        // Only show errors
	JSON   bool        // Output as JSON
	Output io.Writer   // Output destination (default: stderr)
	File   string      // Optional rotating JSON log file
	Logger *zap.Logger // Custom logger (overrides all other options)
}

// Init initializes the logger with the specified options.
func Init(opts Options) {
	l := build(opts)

	mu.Lock()
	prev := defaultLogger
	defaultLogger = l
	mu.Unlock()

	if prev != nil {
		_ = prev.Sync()
	}
}

// SetLogger sets a custom zap.Logger, e.g. zaptest or an observer core in tests.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l.Sugar()
}

func build(opts Options) *zap.SugaredLogger {
	if opts.Logger != nil {
		return opts.Logger.Sugar()
	}

	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}
	if opts.Quiet {
		level = zapcore.ErrorLevel
	}

	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	var consoleEncoder zapcore.Encoder
	if opts.JSON {
		consoleEncoder = zapcore.NewJSONEncoder(encoderConfig())
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(encoderConfig())
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(zapcore.AddSync(output)), level),
	}

	if opts.File != "" {
		// The file sink is always JSON so it can be shipped as-is.
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), fileWriter, level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zapcore.DPanicLevel)).Sugar()
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// Debug logs a debug message with alternating key/value pairs.
func Debug(msg string, args ...any) {
	current().Debugw(msg, args...)
}

// Info logs an info message.
func Info(msg string, args ...any) {
	current().Infow(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	current().Warnw(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	current().Errorw(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *zap.SugaredLogger {
	return current().With(args...)
}

// Sync flushes any buffered log entries.
func Sync() error {
	return current().Sync()
}
