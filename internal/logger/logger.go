package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel is the minimum level written by a LoggerManager
type LogLevel string

const (
	DEBUG LogLevel = "DEBUG"
	INFO  LogLevel = "INFO"
	WARN  LogLevel = "WARN"
	ERROR LogLevel = "ERROR"
)

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// LoggerManager writes human readable lines to stdout and JSON lines to a log file
type LoggerManager struct {
	file   *os.File
	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

// NewLoggerManager creates a logger writing to stdout and logFilePath at DEBUG level
func NewLoggerManager(logFilePath string) (*LoggerManager, error) {
	return NewLoggerManagerWithLevel(logFilePath, DEBUG)
}

// NewLoggerManagerWithLevel creates a logger that drops entries below level
func NewLoggerManagerWithLevel(logFilePath string, level LogLevel) (*LoggerManager, error) {
	logDir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	enabler := zap.NewAtomicLevelAt(level.zapLevel())

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	fileCfg := zap.NewProductionEncoderConfig()
	fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stdout), enabler),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(file), enabler),
	)
	zl := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	return &LoggerManager{
		file:   file,
		logger: zl,
		sugar:  zl.Sugar(),
	}, nil
}

// NewNop returns a logger that discards everything
func NewNop() *LoggerManager {
	zl := zap.NewNop()
	return &LoggerManager{logger: zl, sugar: zl.Sugar()}
}

// Close flushes buffered entries and closes the log file
func (l *LoggerManager) Close() error {
	_ = l.logger.Sync()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Zap exposes the underlying structured logger
func (l *LoggerManager) Zap() *zap.Logger {
	return l.logger
}

// With returns a child logger that adds fields to every entry
func (l *LoggerManager) With(fields ...zap.Field) *LoggerManager {
	child := l.logger.With(fields...)
	return &LoggerManager{logger: child, sugar: child.Sugar()}
}

// Debug writes a debug message
func (l *LoggerManager) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info writes an informational message
func (l *LoggerManager) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn writes a warning
func (l *LoggerManager) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error writes an error message
func (l *LoggerManager) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// LogError logs err with context, ignoring nil errors
func (l *LoggerManager) LogError(err error, context string) {
	if err != nil {
		l.logger.Error(context, zap.Error(err))
	}
}
