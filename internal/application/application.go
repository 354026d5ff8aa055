package application

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"os/user"
	"syscall"

	"postgres-backup-rotate/internal/backup"
	"postgres-backup-rotate/internal/config"
	"postgres-backup-rotate/internal/display"
	apperrors "postgres-backup-rotate/internal/errors"
	"postgres-backup-rotate/internal/logging"
	"postgres-backup-rotate/internal/postgres"
)

// Options carries the command-line switches that shape a run.
type Options struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
	LogFile    string
	NoColor    bool
	DryRun     bool
}

// Application wires configuration, logging, display and the backup engine
// together for a single run.
type Application struct {
	settings  *config.Settings
	logger    *logging.Logger
	presenter *display.RunPresenter
	dryRun    bool
}

// NewApplication loads and validates the configuration and prepares every
// collaborator a run needs. Returned errors are already classified for
// exit-code mapping.
func NewApplication(opts Options) (*Application, error) {
	settings, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrorTypeConfig, err.Error(), err)
	}

	if err := checkRunAsUser(settings.BackupUser); err != nil {
		return nil, err
	}

	logLevel := logging.LogLevelNormal
	if opts.Quiet {
		logLevel = logging.LogLevelQuiet
	} else if opts.Verbose {
		logLevel = logging.LogLevelVerbose
	}

	// Logs go to stderr so the summary on stdout stays pipeable
	logger, err := logging.NewLogger(logging.Config{
		Level:   logLevel,
		Output:  os.Stderr,
		Format:  "text",
		LogFile: opts.LogFile,
	})
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrorTypeConfig, err.Error(), err)
	}

	theme := display.DefaultColorTheme()
	var colors display.ColorSystem
	if opts.NoColor {
		colors = display.NewColorSystemWithSupport(theme, false)
	} else {
		colors = display.NewColorSystem(theme)
	}
	presenter := display.NewRunPresenter(os.Stdout, colors, display.NewIconSystem())

	return &Application{
		settings:  settings,
		logger:    logger,
		presenter: presenter,
		dryRun:    opts.DryRun,
	}, nil
}

// Run executes one backup run end to end and renders the summary. The
// returned error, if any, is the fatal condition that stopped the run;
// per-artifact failures are reported in the summary instead.
func (app *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := postgres.NewCatalog(ctx, app.settings.CatalogDSN(), app.logger)
	if err != nil {
		return app.handleRunError(err)
	}
	defer catalog.Close()

	orchestrator, err := app.buildOrchestrator(catalog)
	if err != nil {
		return err
	}

	report, runErr := orchestrator.Execute(ctx)
	if report != nil {
		app.presenter.Render(report)
	}
	if runErr != nil {
		return app.handleRunError(runErr)
	}
	return nil
}

// handleRunError classifies the failure that stopped a run, logs it with
// its classification, and returns the error the exit path reports.
func (app *Application) handleRunError(err error) error {
	classifier := apperrors.NewErrorClassifier()
	appErr := classifier.ClassifyError(err)
	recoverable := apperrors.IsRecoverableError(appErr)

	fields := map[string]interface{}{
		"error_type":  string(appErr.Type),
		"recoverable": recoverable,
	}
	for k, v := range appErr.Context {
		fields[k] = v
	}

	if recoverable {
		app.logger.WithFields(fields).Warn("Run failed with a recoverable error")
	} else {
		app.logger.WithFields(fields).Error("Run failed")
	}

	return appErr
}

// buildOrchestrator assembles the backup engine from the loaded settings.
func (app *Application) buildOrchestrator(catalog backup.Catalog) (*backup.Orchestrator, error) {
	s := app.settings

	archiver, err := backup.NewArchiver(backup.CompressionType(s.Compression), s.CompressionLevel)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrorTypeConfig, err.Error(), err)
	}

	encryptor, err := app.buildEncryptor()
	if err != nil {
		return nil, err
	}

	var shredder backup.FileShredder
	if s.ShredClearBackupFiles {
		shredder = backup.NewShredder(3)
	}

	cfg := backup.OrchestratorConfig{
		Root:          s.BackupDir,
		WeeklyAnchor:  s.DayOfWeekToKeep,
		Policy:        backup.EvictionPolicy{DaysToKeep: s.DaysToKeep, WeeksToKeep: s.WeeksToKeep},
		EnableGlobals: s.EnableGlobalsBackups,
		EnablePlain:   s.EnablePlainBackups,
		EnableCustom:  s.EnableCustomBackups,
		ExcludeList:   s.ExcludeList,
		Archiver:      archiver,
		Encryptor:     encryptor,
		Shredder:      shredder,
		Timeout:       s.OperationTimeout,
		DryRun:        app.dryRun,
	}

	enumerator := backup.NewTargetEnumerator(catalog, s.SchemaOnlyList, app.logger)
	provider := postgres.NewDumpRunner(postgres.ConnectionOptions{
		Hostname: s.Hostname,
		Port:     s.Port,
		Username: s.Username,
	}, app.logger)

	return backup.NewOrchestrator(cfg, provider, enumerator, app.logger), nil
}

// buildEncryptor selects the encryption provider, or none when payload
// encryption is disabled.
func (app *Application) buildEncryptor() (backup.FileEncryptor, error) {
	s := app.settings
	if !s.EncryptBackupFiles {
		return nil, nil
	}

	switch s.EncryptionProvider {
	case config.EncryptionProviderGPG:
		return backup.NewGPGEncryptor(s.GPGKeyID), nil
	case config.EncryptionProviderNaCl:
		key, err := s.RecipientPublicKey()
		if err != nil {
			return nil, apperrors.NewAppError(apperrors.ErrorTypeConfig, err.Error(), err)
		}
		return backup.NewNaClEncryptor(key), nil
	}

	return nil, apperrors.NewAppError(apperrors.ErrorTypeConfig,
		fmt.Sprintf("unsupported encryption provider %q", s.EncryptionProvider), nil)
}

// checkRunAsUser enforces the BACKUP_USER restriction from the
// configuration. An empty setting allows any user.
func checkRunAsUser(required string) error {
	if required == "" {
		return nil
	}

	current, err := user.Current()
	if err != nil {
		return apperrors.NewAppError(apperrors.ErrorTypePermission,
			"cannot determine the current user", err)
	}
	if current.Username != required {
		return apperrors.NewAppError(apperrors.ErrorTypePermission,
			fmt.Sprintf("backups must run as %s, current user is %s", required, current.Username), nil)
	}
	return nil
}

// GetLogger returns the application logger
func (app *Application) GetLogger() *logging.Logger {
	return app.logger
}
