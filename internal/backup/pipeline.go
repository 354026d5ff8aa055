package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"postgres-backup-rotate/internal/logging"
)

// PipelineConfig wires the providers one artifact pipeline needs
type PipelineConfig struct {
	RunDir    string
	Archiver  Archiver
	Encryptor FileEncryptor // nil disables encryption
	Shredder  FileShredder  // nil disables plaintext shredding
	Timeout   time.Duration // zero means unbounded
}

// Pipeline turns one ArtifactSpec into a finished archive inside the run
// directory. Every stage writes through an in-progress name first, so a
// crash at any point leaves nothing that could be mistaken for a
// complete artifact.
type Pipeline struct {
	runDir    string
	archiver  Archiver
	encryptor FileEncryptor
	shredder  FileShredder
	timeout   time.Duration
	logger    *logging.Logger
}

// NewPipeline creates a pipeline for one run directory
func NewPipeline(cfg PipelineConfig, logger *logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Pipeline{
		runDir:    cfg.RunDir,
		archiver:  cfg.Archiver,
		encryptor: cfg.Encryptor,
		shredder:  cfg.Shredder,
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

// Run executes the full sequence for one artifact: dump into scratch,
// hash, optionally encrypt and shred, archive, clean scratch. A failure
// fails only this artifact; the caller decides whether the run goes on.
func (p *Pipeline) Run(ctx context.Context, spec ArtifactSpec) ArtifactResult {
	start := time.Now()
	result := ArtifactResult{Name: spec.Name, Kind: spec.Kind, Format: spec.Format}

	p.logger.LogArtifactStart(spec.Name, string(spec.Kind), string(spec.Format))

	workDir := p.workDir(spec.Name)
	if err := os.MkdirAll(workDir, 0o700); err != nil {
		return p.fail(result, StageDump, NewDumpError(fmt.Sprintf("cannot create scratch directory %s", workDir), err), start)
	}

	payloadPath := filepath.Join(workDir, spec.PayloadName())
	hash, payloadBytes, err := p.dump(ctx, spec, payloadPath)
	if err != nil {
		return p.fail(result, StageDump, err, start)
	}
	result.SHA256 = hash
	result.PayloadBytes = payloadBytes

	// The sidecar always names the plaintext, even when the archive ends
	// up holding the encrypted sibling
	sidecarPath := payloadPath + ".sha256"
	if err := writeHashSidecar(sidecarPath, hash, filepath.Base(payloadPath)); err != nil {
		return p.fail(result, StageHash, err, start)
	}

	archiveInput := payloadPath
	if p.encryptor != nil {
		encryptedPath, err := p.encrypt(ctx, payloadPath)
		if err != nil {
			return p.fail(result, StageEncrypt, err, start)
		}
		archiveInput = encryptedPath

		if p.shredder != nil {
			// Only shred once the encrypted sibling is on disk
			if err := p.shredder.Shred(payloadPath); err != nil {
				return p.fail(result, StageShred, err, start)
			}
		}
	}

	archivePath := filepath.Join(p.runDir, spec.Name+"."+p.archiver.Extension())
	archiveBytes, err := p.archiver.Create(archivePath, []string{archiveInput, sidecarPath})
	if err != nil {
		return p.fail(result, StageArchive, err, start)
	}
	result.ArchivePath = archivePath
	result.ArchiveBytes = archiveBytes

	if err := os.RemoveAll(workDir); err != nil {
		// The archive is already safe; leftover scratch is only noise
		p.logger.Warnf("Failed to remove scratch directory %s: %v", workDir, err)
	}

	result.Status = StatusSucceeded
	result.Duration = time.Since(start)
	p.logger.LogArtifactResult(spec.Name, "", archiveBytes, result.Duration, nil)

	return result
}

func (p *Pipeline) workDir(name string) string {
	return filepath.Join(p.runDir, "."+name+".work")
}

// dump streams the artifact's bytes to disk while hashing them, then
// renames the finished payload into place
func (p *Pipeline) dump(ctx context.Context, spec ArtifactSpec, payloadPath string) (string, int64, error) {
	dumpCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		dumpCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	tmpPath := payloadPath + InProgressSuffix
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", 0, NewDumpError(fmt.Sprintf("cannot create %s", tmpPath), err)
	}

	hasher := sha256.New()
	if err := spec.Dump(dumpCtx, io.MultiWriter(file, hasher)); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return "", 0, ensureDumpError(err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return "", 0, NewDumpError(fmt.Sprintf("cannot sync %s", tmpPath), err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return "", 0, NewDumpError(fmt.Sprintf("cannot close %s", tmpPath), err)
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return "", 0, NewDumpError(fmt.Sprintf("cannot stat %s", tmpPath), err)
	}

	if err := os.Rename(tmpPath, payloadPath); err != nil {
		os.Remove(tmpPath)
		return "", 0, NewDumpError(fmt.Sprintf("cannot finalize %s", payloadPath), err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), info.Size(), nil
}

func (p *Pipeline) encrypt(ctx context.Context, payloadPath string) (string, error) {
	encCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		encCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	return p.encryptor.EncryptFile(encCtx, payloadPath)
}

func (p *Pipeline) fail(result ArtifactResult, stage Stage, err error, start time.Time) ArtifactResult {
	var backupErr *BackupError
	if errors.As(err, &backupErr) {
		backupErr.WithArtifact(result.Name, stage)
	}

	result.Status = StatusFailed
	result.Stage = stage
	result.Err = err
	result.Duration = time.Since(start)
	p.logger.LogArtifactResult(result.Name, string(stage), 0, result.Duration, err)

	return result
}

func ensureDumpError(err error) error {
	var backupErr *BackupError
	if errors.As(err, &backupErr) {
		return err
	}
	return NewDumpError("dump operation failed", err)
}

// writeHashSidecar writes the checksum in sha256sum format so archives
// verify with standard tooling
func writeHashSidecar(path, hexDigest, payloadName string) error {
	line := fmt.Sprintf("%s  %s\n", hexDigest, payloadName)
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		return NewIntegrityError(fmt.Sprintf("cannot write checksum sidecar %s", path), err)
	}
	return nil
}
