package backup

// RetentionTier classifies a run as daily, weekly or monthly. The tier
// string doubles as the backup directory suffix, so the values must never
// change or be reused across tiers.
type RetentionTier string

const (
	TierDaily   RetentionTier = "daily"
	TierWeekly  RetentionTier = "weekly"
	TierMonthly RetentionTier = "monthly"
)

// String returns the directory suffix form of the tier
func (t RetentionTier) String() string {
	return string(t)
}

// DumpFormat selects the pg_dump output format for full backups
type DumpFormat string

const (
	// FormatPlain is a plain SQL script
	FormatPlain DumpFormat = "plain"
	// FormatCustom is the pg_dump custom archive format
	FormatCustom DumpFormat = "custom"
)

// ArtifactKind identifies what a dump artifact contains
type ArtifactKind string

const (
	KindGlobals    ArtifactKind = "globals"
	KindSchemaOnly ArtifactKind = "schema"
	KindFull       ArtifactKind = "full"
)

// Stage names one step of the artifact pipeline, used to tag failures
type Stage string

const (
	StageDump    Stage = "dump"
	StageHash    Stage = "hash"
	StageEncrypt Stage = "encrypt"
	StageShred   Stage = "shred"
	StageArchive Stage = "archive"
	StageCleanup Stage = "cleanup"
)

// ArtifactStatus is the terminal state of one artifact pipeline
type ArtifactStatus string

const (
	StatusSucceeded ArtifactStatus = "succeeded"
	StatusFailed    ArtifactStatus = "failed"
	StatusSkipped   ArtifactStatus = "skipped"
)

// CompressionType selects the archive compression algorithm
type CompressionType string

const (
	CompressionTypeGzip CompressionType = "gzip"
	CompressionTypeZstd CompressionType = "zstd"
	CompressionTypeLZ4  CompressionType = "lz4"
)

// InProgressSuffix marks files whose write has not completed. Readers
// must treat any path carrying it as garbage from an interrupted run.
const InProgressSuffix = ".in_progress"

// TargetList is an ordered sequence of database names, recomputed from
// live enumeration on every run and never persisted
type TargetList []string

// Contains reports whether the list holds the exact name
func (tl TargetList) Contains(name string) bool {
	for _, db := range tl {
		if db == name {
			return true
		}
	}
	return false
}
