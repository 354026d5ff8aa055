package postgres

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"postgres-backup-rotate/internal/backup"
	"postgres-backup-rotate/internal/logging"
)

// ConnectionOptions are the flags shared by every client tool
// invocation. Passwords are deliberately absent; the tools read
// PGPASSWORD or the service file on their own.
type ConnectionOptions struct {
	Hostname string
	Port     int
	Username string
}

func (o ConnectionOptions) flags() []string {
	return []string{
		"-h", o.Hostname,
		"-p", strconv.Itoa(o.Port),
		"-U", o.Username,
	}
}

// DumpRunner produces logical dumps by shelling out to pg_dump and
// pg_dumpall. It implements backup.DumpProvider.
type DumpRunner struct {
	opts   ConnectionOptions
	logger *logging.Logger

	// command names, swapped by tests for stand-in binaries
	dumpCommand    string
	dumpallCommand string
}

// NewDumpRunner creates a runner using the pg_dump/pg_dumpall found on
// PATH
func NewDumpRunner(opts ConnectionOptions, logger *logging.Logger) *DumpRunner {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &DumpRunner{
		opts:           opts,
		logger:         logger,
		dumpCommand:    "pg_dump",
		dumpallCommand: "pg_dumpall",
	}
}

// DumpGlobals streams cluster-wide objects (roles, tablespaces) to w
func (r *DumpRunner) DumpGlobals(ctx context.Context, w io.Writer) error {
	args := append(r.opts.flags(), "--globals-only")
	return r.run(ctx, r.dumpallCommand, args, w)
}

// DumpSchema streams a schema-only plain dump of one database to w
func (r *DumpRunner) DumpSchema(ctx context.Context, database string, w io.Writer) error {
	args := append(r.opts.flags(), "-Fp", "--schema-only", database)
	return r.run(ctx, r.dumpCommand, args, w)
}

// DumpFull streams a schema+data dump of one database to w in the
// requested format
func (r *DumpRunner) DumpFull(ctx context.Context, database string, format backup.DumpFormat, w io.Writer) error {
	args := r.opts.flags()
	if format == backup.FormatCustom {
		args = append(args, "-Fc")
	} else {
		args = append(args, "-Fp")
	}
	args = append(args, database)
	return r.run(ctx, r.dumpCommand, args, w)
}

// run executes one client tool with stdout streamed to w. The child
// inherits the environment, so PGPASSWORD and service files keep
// working without any configuration here.
func (r *DumpRunner) run(ctx context.Context, command string, args []string, w io.Writer) error {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout = w

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.logger.WithFields(map[string]interface{}{
		"command": command,
		"args":    strings.Join(args, " "),
	}).Debug("Running dump command")

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if err != nil {
		// An expired context kills the child; report the context error,
		// not the kill signal
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backup.NewDumpError(fmt.Sprintf("%s interrupted", command), ctxErr)
		}
		msg := fmt.Sprintf("%s failed", command)
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			msg = fmt.Sprintf("%s failed: %s", command, detail)
		}
		return backup.NewDumpError(msg, err)
	}

	r.logger.WithFields(map[string]interface{}{
		"command":  command,
		"duration": duration.String(),
	}).Debug("Dump command completed")
	return nil
}
