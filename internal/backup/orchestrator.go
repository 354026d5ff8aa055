package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"postgres-backup-rotate/internal/logging"
)

// staleArtifactAge is how old an .in_progress file or scratch directory
// must be before preparation removes it. One run interval keeps a
// concurrent run's live files safe.
const staleArtifactAge = 24 * time.Hour

// OrchestratorConfig carries the run-level settings the orchestrator
// needs. It is assembled from the validated configuration at startup.
type OrchestratorConfig struct {
	// Root is the backup root directory; run directories are created
	// beneath it
	Root string

	// WeeklyAnchor is the ISO weekday (1-7) that promotes a run to the
	// weekly tier
	WeeklyAnchor int

	// Policy holds the per-tier retention windows
	Policy EvictionPolicy

	// Artifact selection
	EnableGlobals bool
	EnablePlain   bool
	EnableCustom  bool
	ExcludeList   []string

	// Pipeline wiring. Encryptor and Shredder may be nil to disable
	// those stages; a zero Timeout leaves operations unbounded.
	Archiver  Archiver
	Encryptor FileEncryptor
	Shredder  FileShredder
	Timeout   time.Duration

	// DryRun reports what the run would do without writing anything
	DryRun bool
}

// Orchestrator drives one backup run end to end: classify the tier,
// evict expired directories of that tier, prepare today's directory,
// enumerate targets and push each artifact through the pipeline.
type Orchestrator struct {
	cfg        OrchestratorConfig
	provider   DumpProvider
	enumerator *TargetEnumerator
	logger     *logging.Logger

	// now is swapped out by tests to pin the calendar date
	now func() time.Time
}

// NewOrchestrator creates an orchestrator for one run
func NewOrchestrator(cfg OrchestratorConfig, provider DumpProvider, enumerator *TargetEnumerator, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Orchestrator{
		cfg:        cfg,
		provider:   provider,
		enumerator: enumerator,
		logger:     logger,
		now:        time.Now,
	}
}

// Execute performs the backup run and returns its report. A non-nil
// error means the run failed fatally (enumeration, directory
// preparation, or the globals dump); per-artifact failures are recorded
// in the report with a nil error.
func (o *Orchestrator) Execute(ctx context.Context) (*RunReport, error) {
	today := o.now()
	tier := TierFor(today, o.cfg.WeeklyAnchor)
	runDir := filepath.Join(o.cfg.Root, DirectoryName(today, tier))

	run := NewBackupRun(tier, today, runDir)
	report := &RunReport{Run: run, DryRun: o.cfg.DryRun}

	o.logger.WithFields(map[string]interface{}{
		"run_id":  run.ID,
		"tier":    tier.String(),
		"dir":     runDir,
		"dry_run": o.cfg.DryRun,
	}).Info("Starting backup run")

	finishSweep := o.logger.LogOperationStart("retention_sweep", map[string]interface{}{
		"tier": tier.String(),
	})
	report.Eviction = NewEvictor(o.cfg.Root, o.cfg.Policy, o.logger).Evict(tier, today, o.cfg.DryRun)
	finishSweep(nil)

	if o.cfg.DryRun {
		return report, o.rehearse(ctx, report)
	}

	if err := o.prepareDirectory(runDir); err != nil {
		return report, err
	}

	schemaOnly, full, err := o.enumerateTargets(ctx)
	if err != nil {
		return report, err
	}

	pipeline := NewPipeline(PipelineConfig{
		RunDir:    runDir,
		Archiver:  o.cfg.Archiver,
		Encryptor: o.cfg.Encryptor,
		Shredder:  o.cfg.Shredder,
		Timeout:   o.cfg.Timeout,
	}, o.logger)

	if o.cfg.EnableGlobals {
		result := pipeline.Run(ctx, ArtifactSpec{
			Name:   "globals",
			Kind:   KindGlobals,
			Format: FormatPlain,
			Dump:   o.provider.DumpGlobals,
		})
		report.Append(result)
		if result.Failed() {
			// Globals carry the roles and tablespaces every restore
			// depends on. Without them the per-database dumps are not
			// restorable, so the run stops here.
			o.logger.Error("Globals backup failed, aborting run")
			o.summarize(report)
			return report, result.Err
		}
	}

	for _, db := range schemaOnly {
		report.Append(pipeline.Run(ctx, o.schemaOnlySpec(db)))
	}

	excluded := toSet(o.cfg.ExcludeList)
	for _, db := range full {
		if excluded[db] {
			o.logger.LogSkip(db)
			report.Append(SkippedResult(db, KindFull, FormatPlain))
			continue
		}
		if o.cfg.EnablePlain {
			report.Append(pipeline.Run(ctx, o.fullSpec(db, FormatPlain)))
		}
		if o.cfg.EnableCustom {
			report.Append(pipeline.Run(ctx, o.fullSpec(db, FormatCustom)))
		}
	}

	o.summarize(report)
	return report, nil
}

// rehearse logs what a real run would dump without touching the
// filesystem. Eviction has already run in dry-run mode by the time this
// is called.
func (o *Orchestrator) rehearse(ctx context.Context, report *RunReport) error {
	schemaOnly, full, err := o.enumerateTargets(ctx)
	if err != nil {
		return err
	}

	if o.cfg.EnableGlobals {
		o.logger.Info("Would dump cluster globals")
		report.Planned = append(report.Planned, "globals")
	}
	for _, db := range schemaOnly {
		o.logger.Infof("Would dump schema of %s", db)
		report.Planned = append(report.Planned, db+"_schema")
	}
	excluded := toSet(o.cfg.ExcludeList)
	for _, db := range full {
		if excluded[db] {
			o.logger.Infof("Would skip %s", db)
			report.PlannedSkips = append(report.PlannedSkips, db)
			continue
		}
		if o.cfg.EnablePlain {
			o.logger.Infof("Would dump %s (plain)", db)
			report.Planned = append(report.Planned, db)
		}
		if o.cfg.EnableCustom {
			o.logger.Infof("Would dump %s (custom)", db)
			report.Planned = append(report.Planned, db+".custom")
		}
	}

	report.Elapsed = time.Since(report.Run.StartedAt)
	o.logger.LogRunSummary(report.Run.Tier.String(), 0, 0, 0, report.Elapsed)
	return nil
}

func (o *Orchestrator) enumerateTargets(ctx context.Context) (TargetList, TargetList, error) {
	finishLog := o.logger.LogOperationStart("target_enumeration", map[string]interface{}{
		"patterns": len(o.enumerator.schemaOnlyPatterns),
	})

	schemaOnly, err := o.enumerator.SchemaOnlyTargets(ctx)
	if err != nil {
		finishLog(err)
		return nil, nil, err
	}
	full, err := o.enumerator.FullTargets(ctx)
	if err != nil {
		finishLog(err)
		return nil, nil, err
	}

	finishLog(nil)
	return schemaOnly, full, nil
}

// prepareDirectory creates today's run directory and clears stale
// leftovers from interrupted runs
func (o *Orchestrator) prepareDirectory(runDir string) error {
	if err := os.MkdirAll(runDir, 0o700); err != nil {
		return NewConfigError(fmt.Sprintf("failed to create backup directory %s", runDir), err)
	}
	o.removeStaleLeftovers(runDir)
	return nil
}

// removeStaleLeftovers deletes .in_progress files and scratch
// directories older than one run interval. Younger ones are left alone
// in case another process is still writing them.
func (o *Orchestrator) removeStaleLeftovers(runDir string) {
	entries, err := os.ReadDir(runDir)
	if err != nil {
		return
	}

	cutoff := time.Now().Add(-staleArtifactAge)
	for _, entry := range entries {
		if !isStaleCandidate(entry.Name(), entry.IsDir()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(runDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			o.logger.Warnf("Failed to remove stale leftover %s: %v", path, err)
			continue
		}
		o.logger.Infof("Removed stale leftover %s", entry.Name())
	}
}

// isStaleCandidate reports whether a directory entry looks like debris
// from an interrupted run
func isStaleCandidate(name string, isDir bool) bool {
	if isDir {
		return strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".work")
	}
	return strings.HasSuffix(name, InProgressSuffix)
}

func (o *Orchestrator) schemaOnlySpec(db string) ArtifactSpec {
	return ArtifactSpec{
		Name:   db + "_schema",
		Kind:   KindSchemaOnly,
		Format: FormatPlain,
		Dump: func(ctx context.Context, w io.Writer) error {
			return o.provider.DumpSchema(ctx, db, w)
		},
	}
}

func (o *Orchestrator) fullSpec(db string, format DumpFormat) ArtifactSpec {
	name := db
	if format == FormatCustom {
		name = db + ".custom"
	}
	return ArtifactSpec{
		Name:   name,
		Kind:   KindFull,
		Format: format,
		Dump: func(ctx context.Context, w io.Writer) error {
			return o.provider.DumpFull(ctx, db, format, w)
		},
	}
}

// summarize closes out the report: elapsed time, the final directory
// listing, the run manifest and the log summary
func (o *Orchestrator) summarize(report *RunReport) {
	report.Elapsed = time.Since(report.Run.StartedAt)
	report.Listing = o.listDirectory(report.Run.Dir)

	stats := StatsFromResults(report.Results)
	o.logger.WithFields(map[string]interface{}{
		"payload_bytes": stats.PayloadBytes,
		"archive_bytes": stats.ArchiveBytes,
		"ratio":         fmt.Sprintf("%.2f", stats.CompressionRatio()),
	}).Debug("Run totals")

	if err := WriteManifest(report); err != nil {
		o.logger.Warnf("Failed to write run manifest: %v", err)
	}

	o.logger.LogRunSummary(report.Run.Tier.String(), report.Succeeded(), report.Failed(), report.Skipped(), report.Elapsed)
}

func (o *Orchestrator) listDirectory(runDir string) []DirectoryEntry {
	entries, err := os.ReadDir(runDir)
	if err != nil {
		o.logger.Warnf("Failed to list %s: %v", runDir, err)
		return nil
	}

	var listing []DirectoryEntry
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		listing = append(listing, DirectoryEntry{Name: entry.Name(), Size: info.Size()})
	}
	return listing
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}
