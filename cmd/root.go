package cmd

import (
	"fmt"
	"os"

	"postgres-backup-rotate/internal/application"
	"postgres-backup-rotate/internal/config"
	apperrors "postgres-backup-rotate/internal/errors"

	"github.com/spf13/cobra"
)

// CLI flag variables
var (
	cfgFile string
	verbose bool
	quiet   bool
	logFile string
	noColor bool
	dryRun  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "postgres-backup-rotate",
	Short: "Rotated PostgreSQL cluster backups with tiered retention",
	Long: `postgres-backup-rotate creates rotated backups of a PostgreSQL cluster.

Each run classifies itself as a daily, weekly or monthly backup from the
calendar date, evicts expired backup directories of the same tier, and dumps
cluster globals, schema-only databases and full databases into a dated
directory of compressed tar archives with SHA-256 sidecars and an optional
encryption pass.

Authentication is delegated to the usual PostgreSQL conventions: PGPASSWORD,
~/.pgpass or a connection service file. No password ever appears in the
configuration.

Examples:
  # Run a backup with a classic KEY=value configuration file
  postgres-backup-rotate -c /etc/pg_backup.conf

  # Rehearse the same run without writing anything
  postgres-backup-rotate -c /etc/pg_backup.conf --dry-run

  # Verbose run with logs mirrored to a file
  postgres-backup-rotate -c backup.yaml -v --log-file /var/log/pg_backup.log

  # Print an annotated sample configuration
  postgres-backup-rotate config > pg_backup.conf`,
	// Stray arguments reach runBackup so they map to a usage error
	// instead of cobra's unknown-command failure
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBackup,
}

// Execute runs the root command and translates any failure into the
// process exit status. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", apperrors.FormatUserError(err))
		if apperrors.GetErrorType(err) == apperrors.ErrorTypeUsage {
			fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", rootCmd.Name())
		}
		os.Exit(apperrors.ExitCodeFor(err))
	}
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "backup configuration file (KEY=value or yaml)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "mirror logs to a file")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable color output")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "classify, plan and report without writing anything")

	// Unknown or malformed flags are usage errors, not run failures
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return apperrors.NewUsageError(err.Error(), err)
	})
}

// runBackup is the main execution function for the CLI
func runBackup(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return apperrors.NewUsageError(fmt.Sprintf("unknown command %q", args[0]), nil)
	}
	if verbose && quiet {
		return apperrors.NewUsageError("--verbose and --quiet are mutually exclusive", nil)
	}
	if cfgFile == "" {
		return apperrors.NewAppError(apperrors.ErrorTypeConfig,
			"no configuration file specified, use --config", nil)
	}

	app, err := application.NewApplication(application.Options{
		ConfigFile: cfgFile,
		Verbose:    verbose,
		Quiet:      quiet,
		LogFile:    logFile,
		NoColor:    noColor,
		DryRun:     dryRun,
	})
	if err != nil {
		return err
	}

	return app.Run()
}

// Version information (set by main package)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
	goVersion = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc, gv string) {
	version = v
	buildTime = bt
	gitCommit = gc
	goVersion = gv
}

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("postgres-backup-rotate version %s\n", version)
			fmt.Printf("Built: %s\n", buildTime)
			fmt.Printf("Commit: %s\n", gitCommit)
			fmt.Printf("Go version: %s\n", goVersion)
		},
	}
}

// createConfigCommand creates the config subcommand for generating a
// sample configuration file
func createConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print a sample configuration file",
		Long: `Print an annotated sample configuration that can be used with the
--config flag. Redirect the output to a file and adjust it for your cluster:

  postgres-backup-rotate config > pg_backup.conf`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(config.Sample())
		},
	}
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())
}
