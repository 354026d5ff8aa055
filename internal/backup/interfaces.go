package backup

import (
	"context"
	"io"
)

// DumpProvider produces logical dumps of the cluster as byte streams.
// Production implementations shell out to pg_dumpall/pg_dump; tests use
// in-memory fakes.
type DumpProvider interface {
	// DumpGlobals writes cluster-wide objects (roles, tablespaces)
	DumpGlobals(ctx context.Context, w io.Writer) error

	// DumpSchema writes a schema-only plain dump of one database
	DumpSchema(ctx context.Context, database string, w io.Writer) error

	// DumpFull writes a schema+data dump of one database in the
	// requested format
	DumpFull(ctx context.Context, database string, format DumpFormat, w io.Writer) error
}

// Catalog enumerates candidate databases from the cluster catalog. A
// query failure is always surfaced as an error, never as an empty list.
type Catalog interface {
	// SchemaOnlyDatabases returns names matching any of the patterns,
	// catalog-sorted. An empty pattern list yields an empty result
	// without querying.
	SchemaOnlyDatabases(ctx context.Context, patterns []string) ([]string, error)

	// FullBackupDatabases returns non-template, connectable names
	// matching none of the patterns, catalog-sorted
	FullBackupDatabases(ctx context.Context, patterns []string) ([]string, error)
}

// FileEncryptor asymmetrically encrypts a file for the configured
// recipient. Decryption is out of scope for the backup host.
type FileEncryptor interface {
	// EncryptFile writes an encrypted sibling of path and returns the
	// sibling's path. The plaintext is left untouched.
	EncryptFile(ctx context.Context, path string) (string, error)

	// Suffix is the filename suffix of encrypted siblings, e.g. ".gpg"
	Suffix() string
}

// FileShredder destroys a plaintext file beyond casual recovery,
// best-effort, and unlinks it
type FileShredder interface {
	Shred(path string) error
}

// Archiver packages artifact files into a single compressed archive
type Archiver interface {
	// Create writes the archive at archivePath containing the named
	// files (stored flat, under their base names) and returns the
	// archive size in bytes
	Create(archivePath string, files []string) (int64, error)

	// Extension is the archive filename extension, e.g. "tar.gz"
	Extension() string
}
