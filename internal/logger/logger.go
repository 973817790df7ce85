// Package logger wraps zap for the ETL run.
//
// A Logger always writes to stdout at the configured level. When an error log
// path is configured, a second core records every error-level entry to that
// file as JSON. The run uses the error log as its outcome signal: an empty
// file at the end of the run means success.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with the error log handle.
type Logger struct {
	*zap.Logger

	errLog *errorLog
}

// Config contains logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or console

	// ErrorLog is the path of the error log file. Empty disables it.
	ErrorLog string
}

type errorLog struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// New creates a new logger instance.
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level),
	}

	var el *errorLog
	if cfg.ErrorLog != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.ErrorLog), 0o777); err != nil {
			return nil, fmt.Errorf("logger: create error log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.ErrorLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, fmt.Errorf("logger: open error log: %w", err)
		}
		el = &errorLog{path: cfg.ErrorLog, file: f}

		fileEnc := zap.NewProductionEncoderConfig()
		fileEnc.TimeKey = "timestamp"
		fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileEnc),
			zapcore.AddSync(f),
			zapcore.ErrorLevel,
		))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return &Logger{Logger: l, errLog: el}, nil
}

// NewNop returns a logger that discards everything. Handy in tests.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Wrap adapts an existing zap.Logger, e.g. one built on an observer core in
// tests. The result has no error log.
func Wrap(l *zap.Logger) *Logger {
	return &Logger{Logger: l}
}

// WithComponent adds a component name to the logger context.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("component", component)), errLog: l.errLog}
}

// WithDataset adds a dataset name to the logger context.
func (l *Logger) WithDataset(name string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("dataset", name)), errLog: l.errLog}
}

// WithRunID adds the run identifier to the logger context.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("run_id", id)), errLog: l.errLog}
}

// ErrorLogPath returns the configured error log path, or "".
func (l *Logger) ErrorLogPath() string {
	if l.errLog == nil {
		return ""
	}
	return l.errLog.path
}

// ErrorLogEmpty flushes the logger and reports whether the error log holds
// no entries. A logger without an error log is always empty.
func (l *Logger) ErrorLogEmpty() (bool, error) {
	_ = l.Logger.Sync()
	if l.errLog == nil {
		return true, nil
	}
	l.errLog.mu.Lock()
	defer l.errLog.mu.Unlock()

	fi, err := os.Stat(l.errLog.path)
	if err != nil {
		return false, fmt.Errorf("logger: stat error log: %w", err)
	}
	return fi.Size() == 0, nil
}

// Close syncs the logger and closes the error log file.
func (l *Logger) Close() error {
	_ = l.Logger.Sync()
	if l.errLog == nil {
		return nil
	}
	l.errLog.mu.Lock()
	defer l.errLog.mu.Unlock()
	if l.errLog.file == nil {
		return nil
	}
	err := l.errLog.file.Close()
	l.errLog.file = nil
	return err
}
