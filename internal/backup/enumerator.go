package backup

import (
	"context"
	"time"

	"postgres-backup-rotate/internal/logging"
)

// TargetEnumerator resolves which databases each backup kind covers.
// It queries the cluster catalog once per list so the set of databases is
// fixed before any dump starts.
type TargetEnumerator struct {
	catalog            Catalog
	schemaOnlyPatterns []string
	logger             *logging.Logger
}

// NewTargetEnumerator creates an enumerator over the given catalog
func NewTargetEnumerator(catalog Catalog, schemaOnlyPatterns []string, logger *logging.Logger) *TargetEnumerator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &TargetEnumerator{
		catalog:            catalog,
		schemaOnlyPatterns: schemaOnlyPatterns,
		logger:             logger,
	}
}

// SchemaOnlyTargets lists the databases selected for schema-only backups.
// Without configured patterns the list is empty and the catalog is never
// queried.
func (te *TargetEnumerator) SchemaOnlyTargets(ctx context.Context) (TargetList, error) {
	if len(te.schemaOnlyPatterns) == 0 {
		return TargetList{}, nil
	}

	start := time.Now()
	names, err := te.catalog.SchemaOnlyDatabases(ctx, te.schemaOnlyPatterns)
	te.logger.LogEnumeration("schema-only", len(names), time.Since(start), err)
	if err != nil {
		return nil, NewConnectionError("failed to enumerate schema-only databases", err)
	}

	return TargetList(names), nil
}

// FullTargets lists the databases selected for full backups: every
// connectable non-template database that no schema-only pattern claims
func (te *TargetEnumerator) FullTargets(ctx context.Context) (TargetList, error) {
	start := time.Now()
	names, err := te.catalog.FullBackupDatabases(ctx, te.schemaOnlyPatterns)
	te.logger.LogEnumeration("full", len(names), time.Since(start), err)
	if err != nil {
		return nil, NewConnectionError("failed to enumerate databases for full backups", err)
	}

	return TargetList(names), nil
}
