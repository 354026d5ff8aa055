package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Encryption provider names accepted by ENCRYPTION_PROVIDER
const (
	EncryptionProviderGPG  = "gpg"
	EncryptionProviderNaCl = "nacl"
)

// Compression algorithm names accepted by COMPRESSION
const (
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
	CompressionLZ4  = "lz4"
)

// Settings is the validated configuration for one backup run. It is built
// once at startup and treated as read-only afterwards.
type Settings struct {
	// Connection
	Hostname string
	Port     int
	Username string
	SSLMode  string

	// Run identity
	BackupDir  string
	BackupUser string

	// Feature toggles
	EnableGlobalsBackups bool
	EnablePlainBackups   bool
	EnableCustomBackups  bool

	// Target selection
	SchemaOnlyList []string
	ExcludeList    []string

	// Encryption
	EncryptBackupFiles    bool
	EncryptionProvider    string
	GPGKeyID              string
	EncryptionPublicKey   string
	ShredClearBackupFiles bool

	// Retention
	DaysToKeep      int
	WeeksToKeep     int
	DayOfWeekToKeep int

	// Archive
	Compression      string
	CompressionLevel int

	// Optional hard bound on each dump/encrypt call; zero means none
	OperationTimeout time.Duration
}

// SetDefaults fills unset fields with their documented defaults
func (s *Settings) SetDefaults() {
	if s.Hostname == "" {
		s.Hostname = "localhost"
	}
	if s.Port == 0 {
		s.Port = 5432
	}
	if s.Username == "" {
		s.Username = "postgres"
	}
	if s.SSLMode == "" {
		s.SSLMode = "disable"
	}
	if s.EncryptionProvider == "" {
		s.EncryptionProvider = EncryptionProviderGPG
	}
	if s.Compression == "" {
		s.Compression = CompressionGzip
	}
	if s.CompressionLevel == 0 {
		s.CompressionLevel = 6
	}
}

// Validate checks the configuration and returns an aggregate error when
// any field is out of range
func (s *Settings) Validate() error {
	var errs []error

	if strings.TrimSpace(s.BackupDir) == "" {
		errs = append(errs, errors.New("BACKUP_DIR is required"))
	}

	if s.Port <= 0 || s.Port > 65535 {
		errs = append(errs, errors.New("PORT must be between 1 and 65535"))
	}

	if s.Username == "" {
		errs = append(errs, errors.New("USERNAME must not be empty"))
	}

	switch s.SSLMode {
	case "disable", "require", "verify-ca", "verify-full":
	default:
		errs = append(errs, fmt.Errorf("SSL_MODE %q is not supported (disable, require, verify-ca, verify-full)", s.SSLMode))
	}

	if s.DaysToKeep < 0 {
		errs = append(errs, errors.New("DAYS_TO_KEEP must be a non-negative integer"))
	}
	if s.WeeksToKeep < 0 {
		errs = append(errs, errors.New("WEEKS_TO_KEEP must be a non-negative integer"))
	}
	if s.DayOfWeekToKeep < 1 || s.DayOfWeekToKeep > 7 {
		errs = append(errs, errors.New("DAY_OF_WEEK_TO_KEEP must be between 1 (Monday) and 7 (Sunday)"))
	}

	switch s.Compression {
	case CompressionGzip, CompressionZstd, CompressionLZ4:
	default:
		errs = append(errs, fmt.Errorf("COMPRESSION %q is not supported (gzip, zstd, lz4)", s.Compression))
	}
	if s.CompressionLevel < 1 || s.CompressionLevel > 9 {
		errs = append(errs, errors.New("COMPRESSION_LEVEL must be between 1 and 9"))
	}

	switch s.EncryptionProvider {
	case EncryptionProviderGPG, EncryptionProviderNaCl:
	default:
		errs = append(errs, fmt.Errorf("ENCRYPTION_PROVIDER %q is not supported (gpg, nacl)", s.EncryptionProvider))
	}

	if s.EncryptBackupFiles {
		switch s.EncryptionProvider {
		case EncryptionProviderGPG:
			if strings.TrimSpace(s.GPGKeyID) == "" {
				errs = append(errs, errors.New("GPG_KEY_ID is required when ENCRYPT_BACKUP_FILES is enabled with the gpg provider"))
			}
		case EncryptionProviderNaCl:
			if err := validateNaClPublicKey(s.EncryptionPublicKey); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if s.OperationTimeout < 0 {
		errs = append(errs, errors.New("OPERATION_TIMEOUT must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

func validateNaClPublicKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("ENCRYPTION_PUBLIC_KEY is required when ENCRYPT_BACKUP_FILES is enabled with the nacl provider")
	}
	raw, err := hex.DecodeString(key)
	if err != nil {
		return fmt.Errorf("ENCRYPTION_PUBLIC_KEY must be hex-encoded: %v", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("ENCRYPTION_PUBLIC_KEY must decode to 32 bytes, got %d", len(raw))
	}
	return nil
}

// RecipientPublicKey decodes the configured NaCl recipient key. Only valid
// after Validate has passed for the nacl provider.
func (s *Settings) RecipientPublicKey() ([32]byte, error) {
	var key [32]byte
	raw, err := hex.DecodeString(s.EncryptionPublicKey)
	if err != nil {
		return key, fmt.Errorf("decoding ENCRYPTION_PUBLIC_KEY: %w", err)
	}
	if len(raw) != 32 {
		return key, fmt.Errorf("ENCRYPTION_PUBLIC_KEY must decode to 32 bytes, got %d", len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

// CatalogDSN returns the libpq connection string used for catalog
// enumeration. The maintenance database is always postgres; passwords are
// never part of the configuration and come from PGPASSWORD or local auth.
func (s *Settings) CatalogDSN() string {
	parts := []string{
		"host=" + quoteDSNValue(s.Hostname),
		fmt.Sprintf("port=%d", s.Port),
		"user=" + quoteDSNValue(s.Username),
		"dbname=postgres",
		"sslmode=" + s.SSLMode,
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue quotes a libpq key=value setting when it contains
// characters the parser treats specially
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\") {
		return v
	}
	escaped := strings.ReplaceAll(v, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return "'" + escaped + "'"
}

// Sample returns an annotated configuration file in KEY=value form,
// suitable for bootstrapping a new installation
func Sample() string {
	return `# postgres-backup-rotate configuration
#
# Connection. Authentication is delegated to the usual libpq mechanisms
# (PGPASSWORD, pg_hba peer/trust); passwords are never stored here.
HOSTNAME=localhost
PORT=5432
USERNAME=postgres
SSL_MODE=disable

# Root directory for backups. Run directories are created beneath it,
# named {date}-{tier}, e.g. 2024-03-01-monthly.
BACKUP_DIR=/var/backups/postgres

# If set, the process refuses to run as any other OS user.
#BACKUP_USER=postgres

# What to back up.
ENABLE_GLOBALS_BACKUPS=yes
ENABLE_PLAIN_BACKUPS=yes
ENABLE_CUSTOM_BACKUPS=no

# Comma-separated POSIX regex fragments. Databases matching any fragment
# get a schema-only dump; all other connectable, non-template databases
# get full dumps.
#SCHEMA_ONLY_LIST=logs,audit

# Comma-separated exact names to skip entirely during full backups.
#EXCLUDE_LIST=scratch

# Encryption of dump payloads before archiving.
ENCRYPT_BACKUP_FILES=no
#ENCRYPTION_PROVIDER=gpg
#GPG_KEY_ID=backup@example.com
# For ENCRYPTION_PROVIDER=nacl: hex-encoded 32-byte recipient public key.
#ENCRYPTION_PUBLIC_KEY=
# Overwrite and unlink plaintext after a confirmed encrypt.
SHRED_CLEAR_BACKUP_FILES=no

# Retention.
DAYS_TO_KEEP=7
WEEKS_TO_KEEP=5
# Weekly anchor, 1-7 (Monday-Sunday).
DAY_OF_WEEK_TO_KEEP=5

# Archive compression: gzip, zstd or lz4.
COMPRESSION=gzip
COMPRESSION_LEVEL=6

# Optional hard timeout per dump/encrypt operation, e.g. 45m. Zero
# disables the bound.
#OPERATION_TIMEOUT=0
`
}
