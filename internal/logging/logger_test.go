package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   LogLevel
	}{
		{
			name: "default config",
			config: Config{
				Level:  LogLevelNormal,
				Format: "text",
			},
			want: LogLevelNormal,
		},
		{
			name: "verbose config",
			config: Config{
				Level:  LogLevelVerbose,
				Format: "json",
			},
			want: LogLevelVerbose,
		},
		{
			name: "quiet config",
			config: Config{
				Level:  LogLevelQuiet,
				Format: "text",
			},
			want: LogLevelQuiet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.config.Output = &buf

			logger, err := NewLogger(tt.config)
			if err != nil {
				t.Errorf("NewLogger() error = %v", err)
				return
			}

			if logger.GetLevel() != tt.want {
				t.Errorf("NewLogger() level = %v, want %v", logger.GetLevel(), tt.want)
			}
		})
	}
}

func TestNewDefaultLogger(t *testing.T) {
	logger := NewDefaultLogger()
	if logger == nil {
		t.Error("NewDefaultLogger() returned nil")
	}

	if logger.GetLevel() != LogLevelNormal {
		t.Errorf("NewDefaultLogger() level = %v, want %v", logger.GetLevel(), LogLevelNormal)
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	config := Config{
		Level:  LogLevelVerbose,
		Output: &buf,
		Format: "text",
	}

	logger, err := NewLogger(config)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	fields := map[string]interface{}{
		"test_field": "test_value",
		"number":     42,
	}

	logger.WithFields(fields).Info("test message")

	output := buf.String()
	if !strings.Contains(output, "test_field=test_value") {
		t.Errorf("Expected output to contain test_field=test_value, got: %s", output)
	}
	if !strings.Contains(output, "number=42") {
		t.Errorf("Expected output to contain number=42, got: %s", output)
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", output)
	}
}

func TestLogArtifactResult(t *testing.T) {
	var buf bytes.Buffer
	config := Config{
		Level:  LogLevelVerbose,
		Output: &buf,
		Format: "text",
	}

	logger, err := NewLogger(config)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	// Successful artifact
	logger.LogArtifactResult("billing", "", 2048, 150*time.Millisecond, nil)
	output := buf.String()
	if !strings.Contains(output, "Artifact backup completed") {
		t.Errorf("Expected success message, got: %s", output)
	}
	if !strings.Contains(output, "artifact=billing") {
		t.Errorf("Expected artifact=billing, got: %s", output)
	}
	if !strings.Contains(output, "archive_bytes=2048") {
		t.Errorf("Expected archive_bytes=2048, got: %s", output)
	}

	buf.Reset()

	// Failed artifact carries stage and error
	testErr := errors.New("pg_dump exited with status 1")
	logger.LogArtifactResult("billing", "dump", 0, 5*time.Second, testErr)
	output = buf.String()
	if !strings.Contains(output, "Artifact backup failed") {
		t.Errorf("Expected failure message, got: %s", output)
	}
	if !strings.Contains(output, "stage=dump") {
		t.Errorf("Expected stage=dump, got: %s", output)
	}
	if !strings.Contains(output, "pg_dump exited with status 1") {
		t.Errorf("Expected error message, got: %s", output)
	}
}

func TestLogSkip(t *testing.T) {
	var buf bytes.Buffer
	config := Config{
		Level:  LogLevelNormal,
		Output: &buf,
		Format: "text",
	}

	logger, err := NewLogger(config)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.LogSkip("app")
	output := buf.String()
	if !strings.Contains(output, "Skipping app") {
		t.Errorf("Expected 'Skipping app', got: %s", output)
	}
}

func TestLogEviction(t *testing.T) {
	var buf bytes.Buffer
	config := Config{
		Level:  LogLevelNormal,
		Output: &buf,
		Format: "text",
	}

	logger, err := NewLogger(config)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.LogEviction("/backups/2024-01-01-daily", "daily", false, nil)
	output := buf.String()
	if !strings.Contains(output, "Removed expired backup directory") {
		t.Errorf("Expected removal message, got: %s", output)
	}

	buf.Reset()

	logger.LogEviction("/backups/2024-01-01-daily", "daily", true, nil)
	output = buf.String()
	if !strings.Contains(output, "Would remove expired backup directory") {
		t.Errorf("Expected dry-run message, got: %s", output)
	}

	buf.Reset()

	testErr := errors.New("permission denied")
	logger.LogEviction("/backups/2024-01-01-daily", "daily", false, testErr)
	output = buf.String()
	if !strings.Contains(output, "Failed to remove expired backup directory") {
		t.Errorf("Expected failure message, got: %s", output)
	}
	if !strings.Contains(output, "permission denied") {
		t.Errorf("Expected error detail, got: %s", output)
	}
}

func TestLogEnumeration(t *testing.T) {
	var buf bytes.Buffer
	config := Config{
		Level:  LogLevelVerbose,
		Output: &buf,
		Format: "text",
	}

	logger, err := NewLogger(config)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.LogEnumeration("full", 3, 20*time.Millisecond, nil)
	output := buf.String()
	if !strings.Contains(output, "Database enumeration completed") {
		t.Errorf("Expected success message, got: %s", output)
	}
	if !strings.Contains(output, "databases=3") {
		t.Errorf("Expected databases=3, got: %s", output)
	}

	buf.Reset()

	testErr := errors.New("connection refused")
	logger.LogEnumeration("full", 0, 20*time.Millisecond, testErr)
	output = buf.String()
	if !strings.Contains(output, "Database enumeration failed") {
		t.Errorf("Expected failure message, got: %s", output)
	}
	if !strings.Contains(output, "connection refused") {
		t.Errorf("Expected error detail, got: %s", output)
	}
}

func TestLogRunSummary(t *testing.T) {
	var buf bytes.Buffer
	config := Config{
		Level:  LogLevelNormal,
		Output: &buf,
		Format: "text",
	}

	logger, err := NewLogger(config)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.LogRunSummary("weekly", 4, 0, 1, 3*time.Minute)
	output := buf.String()
	if !strings.Contains(output, "Backup run completed") {
		t.Errorf("Expected completion message, got: %s", output)
	}
	if !strings.Contains(output, "succeeded=4") {
		t.Errorf("Expected succeeded=4, got: %s", output)
	}

	buf.Reset()

	logger.LogRunSummary("daily", 2, 1, 0, time.Minute)
	output = buf.String()
	if !strings.Contains(output, "Backup run completed with failures") {
		t.Errorf("Expected failure summary, got: %s", output)
	}
}

func TestSetLevel(t *testing.T) {
	logger := NewDefaultLogger()

	logger.SetLevel(LogLevelVerbose)
	if logger.GetLevel() != LogLevelVerbose {
		t.Errorf("SetLevel() failed, got %v, want %v", logger.GetLevel(), LogLevelVerbose)
	}

	logger.SetLevel(LogLevelQuiet)
	if logger.GetLevel() != LogLevelQuiet {
		t.Errorf("SetLevel() failed, got %v, want %v", logger.GetLevel(), LogLevelQuiet)
	}
}

func TestIsLevelEnabled(t *testing.T) {
	tests := []struct {
		name        string
		loggerLevel LogLevel
		testLevel   LogLevel
		want        bool
	}{
		{"quiet logger, error level", LogLevelQuiet, LogLevelQuiet, true},
		{"quiet logger, normal level", LogLevelQuiet, LogLevelNormal, false},
		{"normal logger, normal level", LogLevelNormal, LogLevelNormal, true},
		{"normal logger, verbose level", LogLevelNormal, LogLevelVerbose, false},
		{"verbose logger, verbose level", LogLevelVerbose, LogLevelVerbose, true},
		{"verbose logger, debug level", LogLevelVerbose, LogLevelDebug, false},
		{"debug logger, debug level", LogLevelDebug, LogLevelDebug, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			config := Config{
				Level:  tt.loggerLevel,
				Output: &buf,
				Format: "text",
			}

			logger, err := NewLogger(config)
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}

			if got := logger.IsLevelEnabled(tt.testLevel); got != tt.want {
				t.Errorf("IsLevelEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogOperationStart(t *testing.T) {
	var buf bytes.Buffer
	config := Config{
		Level:  LogLevelVerbose,
		Output: &buf,
		Format: "text",
	}

	logger, err := NewLogger(config)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	fields := map[string]interface{}{
		"database": "billing",
	}

	finishFunc := logger.LogOperationStart("full_backup", fields)

	output := buf.String()
	if !strings.Contains(output, "Operation started") {
		t.Errorf("Expected start message, got: %s", output)
	}
	if !strings.Contains(output, "database=billing") {
		t.Errorf("Expected database=billing, got: %s", output)
	}

	buf.Reset()

	finishFunc(nil)
	output = buf.String()
	if !strings.Contains(output, "Operation completed") {
		t.Errorf("Expected completion message, got: %s", output)
	}
	if !strings.Contains(output, "success=true") {
		t.Errorf("Expected success=true, got: %s", output)
	}

	buf.Reset()

	finishFunc2 := logger.LogOperationStart("full_backup", fields)
	buf.Reset() // Clear start message

	testErr := errors.New("operation failed")
	finishFunc2(testErr)
	output = buf.String()
	if !strings.Contains(output, "Operation failed") {
		t.Errorf("Expected failure message, got: %s", output)
	}
	if !strings.Contains(output, "success=false") {
		t.Errorf("Expected success=false, got: %s", output)
	}
}
