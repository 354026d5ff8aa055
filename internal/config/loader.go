package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Formats viper can parse natively by extension; anything else is treated
// as classic KEY=value
var nativeFormats = map[string]bool{
	"yaml": true,
	"yml":  true,
	"json": true,
	"toml": true,
	"ini":  true,
}

// Load reads, parses and validates a configuration file. The file format
// follows the extension; bare .conf/.config files are parsed as KEY=value.
func Load(path string) (*Settings, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("no configuration file specified")
	}

	v := viper.New()
	v.SetConfigFile(path)

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if !nativeFormats[strings.ToLower(ext)] {
		v.SetConfigType("env")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("cannot read configuration file %s: %w", path, err)
	}

	s, err := fromViper(v)
	if err != nil {
		return nil, err
	}

	s.SetDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// fromViper extracts every known key as a string and converts it
// explicitly, so yes/no toggles and numeric strings are validated in one
// place regardless of the file format
func fromViper(v *viper.Viper) (*Settings, error) {
	var errs []error
	s := &Settings{}

	s.BackupDir = strings.TrimSpace(v.GetString("BACKUP_DIR"))
	s.Hostname = strings.TrimSpace(v.GetString("HOSTNAME"))
	s.Username = strings.TrimSpace(v.GetString("USERNAME"))
	s.SSLMode = strings.TrimSpace(v.GetString("SSL_MODE"))
	s.BackupUser = strings.TrimSpace(v.GetString("BACKUP_USER"))
	s.GPGKeyID = strings.TrimSpace(v.GetString("GPG_KEY_ID"))
	s.EncryptionProvider = strings.ToLower(strings.TrimSpace(v.GetString("ENCRYPTION_PROVIDER")))
	s.EncryptionPublicKey = strings.TrimSpace(v.GetString("ENCRYPTION_PUBLIC_KEY"))
	s.Compression = strings.ToLower(strings.TrimSpace(v.GetString("COMPRESSION")))

	s.SchemaOnlyList = splitList(v.GetString("SCHEMA_ONLY_LIST"))
	s.ExcludeList = splitList(v.GetString("EXCLUDE_LIST"))

	collectInt(v, "PORT", 0, &s.Port, &errs)
	collectInt(v, "DAYS_TO_KEEP", 7, &s.DaysToKeep, &errs)
	collectInt(v, "WEEKS_TO_KEEP", 5, &s.WeeksToKeep, &errs)
	collectInt(v, "DAY_OF_WEEK_TO_KEEP", 5, &s.DayOfWeekToKeep, &errs)
	collectInt(v, "COMPRESSION_LEVEL", 0, &s.CompressionLevel, &errs)

	collectBool(v, "ENABLE_GLOBALS_BACKUPS", &s.EnableGlobalsBackups, &errs)
	collectBool(v, "ENABLE_PLAIN_BACKUPS", &s.EnablePlainBackups, &errs)
	collectBool(v, "ENABLE_CUSTOM_BACKUPS", &s.EnableCustomBackups, &errs)
	collectBool(v, "ENCRYPT_BACKUP_FILES", &s.EncryptBackupFiles, &errs)
	collectBool(v, "SHRED_CLEAR_BACKUP_FILES", &s.ShredClearBackupFiles, &errs)

	collectDuration(v, "OPERATION_TIMEOUT", &s.OperationTimeout, &errs)

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration parsing failed: %v", errs)
	}

	return s, nil
}

// ParseBool converts the yes/no style toggle values accepted in
// configuration files
func ParseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "true", "on", "1":
		return true, nil
	case "no", "false", "off", "0", "":
		return false, nil
	default:
		return false, fmt.Errorf("%q is not a valid boolean (use yes or no)", raw)
	}
}

func collectBool(v *viper.Viper, key string, dst *bool, errs *[]error) {
	raw := v.GetString(key)
	val, err := ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %v", key, err))
		return
	}
	*dst = val
}

func collectInt(v *viper.Viper, key string, def int, dst *int, errs *[]error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		*dst = def
		return
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not an integer", key, raw))
		return
	}
	*dst = val
}

func collectDuration(v *viper.Viper, key string, dst *time.Duration, errs *[]error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" || raw == "0" {
		*dst = 0
		return
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a duration (use forms like 30s, 45m)", key, raw))
		return
	}
	*dst = val
}

// splitList splits a comma-separated configuration value, trimming
// whitespace and dropping empty entries
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
