package backup

import (
	"errors"
	"fmt"
)

// BackupError represents errors that occur during a backup run
type BackupError struct {
	Type     BackupErrorType        `json:"type"`
	Message  string                 `json:"message"`
	Cause    error                  `json:"-"`
	Artifact string                 `json:"artifact,omitempty"`
	Stage    Stage                  `json:"stage,omitempty"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *BackupError) Error() string {
	prefix := string(e.Type)
	if e.Artifact != "" {
		prefix = fmt.Sprintf("%s [%s/%s]", e.Type, e.Artifact, e.Stage)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying cause error
func (e *BackupError) Unwrap() error {
	return e.Cause
}

// BackupErrorType represents different types of backup errors
type BackupErrorType string

const (
	BackupErrorTypeConfig     BackupErrorType = "CONFIG_ERROR"
	BackupErrorTypeConnection BackupErrorType = "CONNECTION_ERROR"
	BackupErrorTypeDump       BackupErrorType = "DUMP_ERROR"
	BackupErrorTypeIntegrity  BackupErrorType = "INTEGRITY_ERROR"
	BackupErrorTypeEncryption BackupErrorType = "ENCRYPTION_ERROR"
	BackupErrorTypeArchive    BackupErrorType = "ARCHIVE_ERROR"
	BackupErrorTypeEviction   BackupErrorType = "EVICTION_ERROR"
)

// NewBackupError creates a new BackupError
func NewBackupError(errorType BackupErrorType, message string, cause error) *BackupError {
	return &BackupError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *BackupError) WithContext(key string, value interface{}) *BackupError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithArtifact tags the error with the artifact and pipeline stage it
// belongs to
func (e *BackupError) WithArtifact(artifact string, stage Stage) *BackupError {
	e.Artifact = artifact
	e.Stage = stage
	return e
}

// Common error constructors

// NewConfigError reports missing/unreadable configuration or a wrong
// run-as user; always fatal to the run
func NewConfigError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeConfig, message, cause)
}

// NewConnectionError reports a catalog enumeration failure; fatal, and
// deliberately distinct from an empty target list
func NewConnectionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeConnection, message, cause)
}

// NewDumpError reports a failed dump operation; non-fatal except for the
// cluster globals artifact
func NewDumpError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeDump, message, cause)
}

// NewIntegrityError reports a hash sidecar failure
func NewIntegrityError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeIntegrity, message, cause)
}

// NewEncryptionError reports an encryption failure; the plaintext payload
// is preserved rather than lost
func NewEncryptionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeEncryption, message, cause)
}

// NewArchiveError reports an archive creation failure; scratch files are
// preserved for manual recovery
func NewArchiveError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeArchive, message, cause)
}

// NewEvictionError reports a stale-directory removal failure; logged,
// non-fatal, retried on the next run
func NewEvictionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeEviction, message, cause)
}

// ErrorTypeOf extracts the BackupErrorType from an error chain
func ErrorTypeOf(err error) (BackupErrorType, bool) {
	var backupErr *BackupError
	if errors.As(err, &backupErr) {
		return backupErr.Type, true
	}
	return "", false
}

// IsFatal reports whether an error must terminate the whole run rather
// than just the current artifact
func IsFatal(err error) bool {
	errType, ok := ErrorTypeOf(err)
	if !ok {
		return false
	}
	switch errType {
	case BackupErrorTypeConfig, BackupErrorTypeConnection:
		return true
	default:
		return false
	}
}
