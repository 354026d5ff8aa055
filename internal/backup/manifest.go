package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestFilename is the per-run record written into the run directory
const ManifestFilename = "manifest.yaml"

// Manifest is the durable summary of one run, written after all
// artifacts have settled
type Manifest struct {
	RunID       string             `yaml:"run_id"`
	Tier        string             `yaml:"tier"`
	Date        string             `yaml:"date"`
	StartedAt   time.Time          `yaml:"started_at"`
	CompletedAt time.Time          `yaml:"completed_at"`
	Elapsed     string             `yaml:"elapsed"`
	Succeeded   int                `yaml:"succeeded"`
	Failed      int                `yaml:"failed"`
	Skipped     int                `yaml:"skipped"`
	Artifacts   []ManifestArtifact `yaml:"artifacts"`
}

// ManifestArtifact is one artifact's outcome inside the manifest
type ManifestArtifact struct {
	Name         string `yaml:"name"`
	Kind         string `yaml:"kind"`
	Format       string `yaml:"format"`
	Status       string `yaml:"status"`
	Archive      string `yaml:"archive,omitempty"`
	SHA256       string `yaml:"sha256,omitempty"`
	PayloadBytes int64  `yaml:"payload_bytes,omitempty"`
	ArchiveBytes int64  `yaml:"archive_bytes,omitempty"`
	Duration     string `yaml:"duration,omitempty"`
	Stage        string `yaml:"stage,omitempty"`
	Error        string `yaml:"error,omitempty"`
}

// BuildManifest converts a run report into its manifest form
func BuildManifest(report *RunReport) *Manifest {
	manifest := &Manifest{
		RunID:       report.Run.ID,
		Tier:        report.Run.Tier.String(),
		Date:        report.Run.Date.Format(dateLayout),
		StartedAt:   report.Run.StartedAt,
		CompletedAt: report.Run.StartedAt.Add(report.Elapsed),
		Elapsed:     report.Elapsed.String(),
		Succeeded:   report.Succeeded(),
		Failed:      report.Failed(),
		Skipped:     report.Skipped(),
	}

	for _, result := range report.Results {
		artifact := ManifestArtifact{
			Name:   result.Name,
			Kind:   string(result.Kind),
			Format: string(result.Format),
			Status: string(result.Status),
		}

		switch result.Status {
		case StatusSucceeded:
			artifact.Archive = filepath.Base(result.ArchivePath)
			artifact.SHA256 = result.SHA256
			artifact.PayloadBytes = result.PayloadBytes
			artifact.ArchiveBytes = result.ArchiveBytes
			artifact.Duration = result.Duration.String()
		case StatusFailed:
			artifact.Stage = string(result.Stage)
			artifact.Error = result.ErrorMessage()
			artifact.Duration = result.Duration.String()
		}

		manifest.Artifacts = append(manifest.Artifacts, artifact)
	}

	return manifest
}

// WriteManifest writes the manifest into the run directory under the
// usual in-progress then rename discipline
func WriteManifest(report *RunReport) error {
	manifest := BuildManifest(report)

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return NewArchiveError("cannot marshal run manifest", err)
	}

	path := filepath.Join(report.Run.Dir, ManifestFilename)
	tmpPath := path + InProgressSuffix
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return NewArchiveError(fmt.Sprintf("cannot write run manifest %s", tmpPath), err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return NewArchiveError(fmt.Sprintf("cannot finalize run manifest %s", path), err)
	}

	return nil
}
