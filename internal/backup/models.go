package backup

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BackupRun is the state of one invocation. It is created at process
// start and never persisted beyond the run manifest.
type BackupRun struct {
	ID        string
	Tier      RetentionTier
	Date      time.Time
	Dir       string
	StartedAt time.Time
}

// NewBackupRun creates the run state for today's invocation
func NewBackupRun(tier RetentionTier, date time.Time, dir string) *BackupRun {
	return &BackupRun{
		ID:        GenerateRunID(),
		Tier:      tier,
		Date:      date,
		Dir:       dir,
		StartedAt: time.Now(),
	}
}

// DumpFunc produces one logical dump into w
type DumpFunc func(ctx context.Context, w io.Writer) error

// ArtifactSpec describes one artifact for the pipeline: a base name, what
// it contains, and the operation that produces its bytes
type ArtifactSpec struct {
	Name   string
	Kind   ArtifactKind
	Format DumpFormat
	Dump   DumpFunc
}

// PayloadName returns the payload filename stored inside the archive
func (s ArtifactSpec) PayloadName() string {
	if s.Format == FormatCustom {
		return s.Name // name already carries the .custom suffix
	}
	return s.Name + ".sql"
}

// ArtifactResult is the terminal outcome of one artifact pipeline
type ArtifactResult struct {
	Name         string
	Kind         ArtifactKind
	Format       DumpFormat
	Status       ArtifactStatus
	ArchivePath  string
	SHA256       string
	PayloadBytes int64
	ArchiveBytes int64
	Duration     time.Duration
	Stage        Stage
	Err          error
}

// Failed reports whether the artifact pipeline failed
func (r ArtifactResult) Failed() bool {
	return r.Status == StatusFailed
}

// ErrorMessage returns the failure message, or an empty string on success
func (r ArtifactResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// SkippedResult builds the result recorded for an excluded database
func SkippedResult(name string, kind ArtifactKind, format DumpFormat) ArtifactResult {
	return ArtifactResult{
		Name:   name,
		Kind:   kind,
		Format: format,
		Status: StatusSkipped,
	}
}

// DirectoryEntry is one row of the final backup directory listing
type DirectoryEntry struct {
	Name string
	Size int64
}

// RunReport aggregates everything one run produced
type RunReport struct {
	Run      *BackupRun
	Results  []ArtifactResult
	Listing  []DirectoryEntry
	Eviction *EvictionResult
	Elapsed  time.Duration
	DryRun   bool

	// Filled instead of Results when a dry run plans without writing
	Planned      []string
	PlannedSkips []string
}

// Append records one artifact outcome
func (r *RunReport) Append(result ArtifactResult) {
	r.Results = append(r.Results, result)
}

// Succeeded counts successful artifacts
func (r *RunReport) Succeeded() int { return r.countStatus(StatusSucceeded) }

// Failed counts failed artifacts
func (r *RunReport) Failed() int { return r.countStatus(StatusFailed) }

// Skipped counts skipped artifacts
func (r *RunReport) Skipped() int { return r.countStatus(StatusSkipped) }

func (r *RunReport) countStatus(status ArtifactStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// HasFailures reports whether any artifact failed
func (r *RunReport) HasFailures() bool {
	return r.Failed() > 0
}

// GenerateRunID generates a unique run ID
func GenerateRunID() string {
	// Use UUID v4 for uniqueness with timestamp prefix for sorting
	timestamp := time.Now().UTC().Format("20060102-150405")
	id := uuid.New().String()

	// Remove hyphens from UUID and take first 8 characters for brevity
	short := strings.ReplaceAll(id, "-", "")[:8]

	return fmt.Sprintf("run-%s-%s", timestamp, short)
}
