package backup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleReport(dir string) *RunReport {
	run := NewBackupRun(TierWeekly, date(2024, time.March, 8), dir)
	report := &RunReport{Run: run, Elapsed: 90 * time.Second}
	report.Append(ArtifactResult{
		Name:         "globals",
		Kind:         KindGlobals,
		Format:       FormatPlain,
		Status:       StatusSucceeded,
		ArchivePath:  filepath.Join(dir, "globals.tar.gz"),
		SHA256:       "deadbeef",
		PayloadBytes: 2048,
		ArchiveBytes: 512,
		Duration:     3 * time.Second,
	})
	report.Append(ArtifactResult{
		Name:     "billing",
		Kind:     KindFull,
		Format:   FormatPlain,
		Status:   StatusFailed,
		Stage:    StageDump,
		Duration: time.Second,
		Err:      errors.New("pg_dump exited 1"),
	})
	report.Append(SkippedResult("legacy", KindFull, FormatPlain))
	return report
}

func TestBuildManifest(t *testing.T) {
	report := sampleReport("/var/backups/postgres/2024-03-08-weekly")

	manifest := BuildManifest(report)

	assert.Equal(t, report.Run.ID, manifest.RunID)
	assert.Equal(t, "weekly", manifest.Tier)
	assert.Equal(t, "2024-03-08", manifest.Date)
	assert.Equal(t, "1m30s", manifest.Elapsed)
	assert.Equal(t, 1, manifest.Succeeded)
	assert.Equal(t, 1, manifest.Failed)
	assert.Equal(t, 1, manifest.Skipped)
	require.Len(t, manifest.Artifacts, 3)

	succeeded := manifest.Artifacts[0]
	assert.Equal(t, "globals", succeeded.Name)
	assert.Equal(t, "succeeded", succeeded.Status)
	assert.Equal(t, "globals.tar.gz", succeeded.Archive)
	assert.Equal(t, "deadbeef", succeeded.SHA256)
	assert.Equal(t, int64(2048), succeeded.PayloadBytes)
	assert.Empty(t, succeeded.Error)

	failed := manifest.Artifacts[1]
	assert.Equal(t, "failed", failed.Status)
	assert.Equal(t, "dump", failed.Stage)
	assert.Equal(t, "pg_dump exited 1", failed.Error)
	assert.Empty(t, failed.Archive)

	skipped := manifest.Artifacts[2]
	assert.Equal(t, "skipped", skipped.Status)
	assert.Empty(t, skipped.Stage)
	assert.Empty(t, skipped.Duration)
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()
	report := sampleReport(dir)

	require.NoError(t, WriteManifest(report))

	path := filepath.Join(dir, ManifestFilename)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Manifest
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, report.Run.ID, loaded.RunID)
	assert.Len(t, loaded.Artifacts, 3)

	// No in-progress leftover
	_, err = os.Stat(path + InProgressSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteManifestMissingDirectory(t *testing.T) {
	report := sampleReport(filepath.Join(t.TempDir(), "never-created"))

	err := WriteManifest(report)

	require.Error(t, err)
	errType, ok := ErrorTypeOf(err)
	require.True(t, ok)
	assert.Equal(t, BackupErrorTypeArchive, errType)
}
