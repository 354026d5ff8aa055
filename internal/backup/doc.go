// Package backup implements rotating logical backups of a PostgreSQL
// cluster with tiered retention.
//
// Every run is classified into a retention tier from the calendar date:
// the first of the month is monthly, the configured anchor weekday is
// weekly, everything else is daily. Expired directories of the run's own
// tier are evicted before the new directory is created, so disk usage
// converges to the configured daily and weekly windows plus the current
// monthly snapshot. Ages are always derived from the date encoded in the
// directory name, never from filesystem timestamps, and names that do
// not parse are never touched.
//
// Core components:
//
//   - Orchestrator: drives one run through tier classification,
//     eviction, directory preparation, target enumeration and the
//     per-artifact pipeline
//   - Evictor: sweeps expired backup directories of the current tier
//   - TargetEnumerator: resolves schema-only and full backup targets
//     from the live cluster catalog
//   - Pipeline: turns one dump stream into a compressed archive holding
//     the payload (optionally encrypted) and its SHA-256 sidecar
//
// Durability rules: every file is written under an .in_progress suffix,
// fsynced and renamed into place, so an interrupted run never leaves a
// path mistakable for a complete artifact. Plaintext payloads are
// shredded only after their encrypted sibling is confirmed on disk.
//
// Example usage:
//
//	enumerator := backup.NewTargetEnumerator(catalog, patterns, logger)
//	orch := backup.NewOrchestrator(backup.OrchestratorConfig{
//		Root:          "/var/backups/postgres",
//		WeeklyAnchor:  5,
//		Policy:        backup.EvictionPolicy{DaysToKeep: 7, WeeksToKeep: 5},
//		EnableGlobals: true,
//		EnablePlain:   true,
//		Archiver:      backup.NewGzipArchiver(6),
//	}, provider, enumerator, logger)
//
//	report, err := orch.Execute(ctx)
//	if err != nil {
//		return fmt.Errorf("backup run failed: %w", err)
//	}
package backup
