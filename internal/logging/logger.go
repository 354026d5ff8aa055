package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level
type LogLevel string

const (
	// LogLevelQuiet suppresses all output except critical errors
	LogLevelQuiet LogLevel = "quiet"
	// LogLevelNormal shows standard operational messages
	LogLevelNormal LogLevel = "normal"
	// LogLevelVerbose shows detailed operational information
	LogLevelVerbose LogLevel = "verbose"
	// LogLevelDebug shows all debug information
	LogLevelDebug LogLevel = "debug"
)

// Logger provides structured logging for backup runs
type Logger struct {
	logger *logrus.Logger
	level  LogLevel
}

// Config holds logger configuration
type Config struct {
	Level      LogLevel
	Output     io.Writer
	Format     string // "text" or "json"
	ShowCaller bool
	LogFile    string
}

// NewLogger creates a new logger with the specified configuration
func NewLogger(config Config) (*Logger, error) {
	logger := logrus.New()

	if config.Output != nil {
		logger.SetOutput(config.Output)
	} else {
		logger.SetOutput(os.Stdout)
	}

	switch config.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	default:
		formatter := &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		}
		if config.ShowCaller {
			logger.SetReportCaller(true)
			formatter.CallerPrettyfier = func(f *runtime.Frame) (string, string) {
				filename := filepath.Base(f.File)
				return fmt.Sprintf("%s()", f.Function), fmt.Sprintf("%s:%d", filename, f.Line)
			}
		}
		logger.SetFormatter(formatter)
	}

	switch config.Level {
	case LogLevelQuiet:
		logger.SetLevel(logrus.ErrorLevel)
	case LogLevelNormal:
		logger.SetLevel(logrus.InfoLevel)
	case LogLevelVerbose:
		logger.SetLevel(logrus.DebugLevel)
	case LogLevelDebug:
		logger.SetLevel(logrus.TraceLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if config.LogFile != "" {
		file, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", config.LogFile, err)
		}

		// Mirror everything to the file; console output stays readable
		if config.Output == nil {
			logger.SetOutput(io.MultiWriter(os.Stdout, file))
		} else {
			logger.SetOutput(io.MultiWriter(config.Output, file))
		}
	}

	return &Logger{
		logger: logger,
		level:  config.Level,
	}, nil
}

// NewDefaultLogger creates a logger with default configuration
func NewDefaultLogger() *Logger {
	config := Config{
		Level:  LogLevelNormal,
		Output: os.Stdout,
		Format: "text",
	}

	logger, _ := NewLogger(config)
	return logger
}

// WithFields returns a logger entry with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.logger.WithFields(fields)
}

// WithField returns a logger entry with a single additional field
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.logger.WithField(key, value)
}

// Backup operation logging methods

// LogArtifactStart logs the beginning of one artifact pipeline
func (l *Logger) LogArtifactStart(artifact, kind, format string) {
	l.logger.WithFields(logrus.Fields{
		"operation": "artifact",
		"artifact":  artifact,
		"kind":      kind,
		"format":    format,
	}).Info("Artifact backup started")
}

// LogArtifactResult logs the outcome of one artifact pipeline
func (l *Logger) LogArtifactResult(artifact, stage string, archiveBytes int64, duration time.Duration, err error) {
	fields := logrus.Fields{
		"operation": "artifact",
		"artifact":  artifact,
		"duration":  duration.String(),
	}

	if err != nil {
		fields["stage"] = stage
		fields["error"] = err.Error()
		l.logger.WithFields(fields).Error("Artifact backup failed")
		return
	}

	fields["archive_bytes"] = archiveBytes
	l.logger.WithFields(fields).Info("Artifact backup completed")
}

// LogSkip logs a database skipped via the exclusion list
func (l *Logger) LogSkip(database string) {
	l.logger.WithFields(logrus.Fields{
		"operation": "artifact",
		"database":  database,
	}).Infof("Skipping %s", database)
}

// LogEviction logs removal of an expired backup directory
func (l *Logger) LogEviction(dir string, tier string, dryRun bool, err error) {
	fields := logrus.Fields{
		"operation": "eviction",
		"directory": dir,
		"tier":      tier,
	}

	switch {
	case err != nil:
		fields["error"] = err.Error()
		l.logger.WithFields(fields).Warn("Failed to remove expired backup directory")
	case dryRun:
		l.logger.WithFields(fields).Info("Would remove expired backup directory")
	default:
		l.logger.WithFields(fields).Info("Removed expired backup directory")
	}
}

// LogEnumeration logs the outcome of a catalog enumeration
func (l *Logger) LogEnumeration(listKind string, count int, duration time.Duration, err error) {
	fields := logrus.Fields{
		"operation": "enumeration",
		"list":      listKind,
		"duration":  duration.String(),
	}

	if err != nil {
		fields["error"] = err.Error()
		l.logger.WithFields(fields).Error("Database enumeration failed")
		return
	}

	fields["databases"] = count
	l.logger.WithFields(fields).Debug("Database enumeration completed")
}

// LogRunSummary logs the aggregate outcome of a whole run
func (l *Logger) LogRunSummary(tier string, succeeded, failed, skipped int, elapsed time.Duration) {
	fields := logrus.Fields{
		"operation": "summary",
		"tier":      tier,
		"succeeded": succeeded,
		"failed":    failed,
		"skipped":   skipped,
		"elapsed":   elapsed.String(),
	}

	if failed > 0 {
		l.logger.WithFields(fields).Warn("Backup run completed with failures")
	} else {
		l.logger.WithFields(fields).Info("Backup run completed")
	}
}

// Standard logging methods

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.logger.Info(msg)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.logger.Debug(msg)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.logger.Warn(msg)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	l.logger.Error(msg)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	return l.level
}

// SetLevel sets the log level
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
	switch level {
	case LogLevelQuiet:
		l.logger.SetLevel(logrus.ErrorLevel)
	case LogLevelNormal:
		l.logger.SetLevel(logrus.InfoLevel)
	case LogLevelVerbose:
		l.logger.SetLevel(logrus.DebugLevel)
	case LogLevelDebug:
		l.logger.SetLevel(logrus.TraceLevel)
	}
}

// IsLevelEnabled checks if a log level is enabled
func (l *Logger) IsLevelEnabled(level LogLevel) bool {
	switch level {
	case LogLevelQuiet:
		return l.logger.IsLevelEnabled(logrus.ErrorLevel)
	case LogLevelNormal:
		return l.logger.IsLevelEnabled(logrus.InfoLevel)
	case LogLevelVerbose:
		return l.logger.IsLevelEnabled(logrus.DebugLevel)
	case LogLevelDebug:
		return l.logger.IsLevelEnabled(logrus.TraceLevel)
	default:
		return false
	}
}

// LogOperationStart logs the start of an operation and returns a function to log completion
func (l *Logger) LogOperationStart(operation string, fields map[string]interface{}) func(error) {
	startTime := time.Now()

	logFields := logrus.Fields{
		"operation": operation,
		"status":    "started",
	}
	for k, v := range fields {
		logFields[k] = v
	}

	l.logger.WithFields(logFields).Debug("Operation started")

	return func(err error) {
		duration := time.Since(startTime)
		logFields["status"] = "completed"
		logFields["duration"] = duration.String()

		if err != nil {
			logFields["error"] = err.Error()
			logFields["success"] = false
			l.logger.WithFields(logFields).Error("Operation failed")
		} else {
			logFields["success"] = true
			l.logger.WithFields(logFields).Info("Operation completed")
		}
	}
}
