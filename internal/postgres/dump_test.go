package postgres

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postgres-backup-rotate/internal/backup"
)

// fakeTool writes a stand-in client binary so tests never depend on an
// installed PostgreSQL
func fakeTool(t *testing.T, name, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake client scripts require a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

const fakeDumpOK = `#!/bin/sh
printf '%s\n' "$@" > "$(dirname "$0")/args"
printf 'CREATE TABLE t ();\n'
`

const fakeDumpFail = `#!/bin/sh
echo 'pg_dump: error: connection to server failed' >&2
exit 1
`

const fakeDumpHang = `#!/bin/sh
sleep 5
`

func testOptions() ConnectionOptions {
	return ConnectionOptions{Hostname: "localhost", Port: 5432, Username: "postgres"}
}

func recordedArgs(t *testing.T, command string) string {
	t.Helper()
	args, err := os.ReadFile(filepath.Join(filepath.Dir(command), "args"))
	require.NoError(t, err)
	return string(args)
}

func TestDumpRunner_DumpGlobals(t *testing.T) {
	command := fakeTool(t, "pg_dumpall", fakeDumpOK)
	runner := NewDumpRunner(testOptions(), nil)
	runner.dumpallCommand = command

	var out bytes.Buffer
	err := runner.DumpGlobals(context.Background(), &out)

	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE t ();\n", out.String())

	args := recordedArgs(t, command)
	assert.Contains(t, args, "-h\nlocalhost")
	assert.Contains(t, args, "-p\n5432")
	assert.Contains(t, args, "-U\npostgres")
	assert.Contains(t, args, "--globals-only")
}

func TestDumpRunner_DumpSchema(t *testing.T) {
	command := fakeTool(t, "pg_dump", fakeDumpOK)
	runner := NewDumpRunner(testOptions(), nil)
	runner.dumpCommand = command

	var out bytes.Buffer
	err := runner.DumpSchema(context.Background(), "appdb", &out)

	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE t ();\n", out.String())

	args := recordedArgs(t, command)
	assert.Contains(t, args, "--schema-only")
	assert.Contains(t, args, "-Fp")
	assert.Contains(t, args, "appdb")
}

func TestDumpRunner_DumpFull(t *testing.T) {
	tests := []struct {
		name     string
		format   backup.DumpFormat
		wantFlag string
	}{
		{name: "plain format", format: backup.FormatPlain, wantFlag: "-Fp"},
		{name: "custom format", format: backup.FormatCustom, wantFlag: "-Fc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command := fakeTool(t, "pg_dump", fakeDumpOK)
			runner := NewDumpRunner(testOptions(), nil)
			runner.dumpCommand = command

			var out bytes.Buffer
			err := runner.DumpFull(context.Background(), "appdb", tt.format, &out)

			require.NoError(t, err)
			args := recordedArgs(t, command)
			assert.Contains(t, args, tt.wantFlag)
			assert.Contains(t, args, "appdb")
		})
	}
}

func TestDumpRunner_Failure(t *testing.T) {
	command := fakeTool(t, "pg_dump", fakeDumpFail)
	runner := NewDumpRunner(testOptions(), nil)
	runner.dumpCommand = command

	var out bytes.Buffer
	err := runner.DumpFull(context.Background(), "appdb", backup.FormatPlain, &out)

	require.Error(t, err)
	errType, ok := backup.ErrorTypeOf(err)
	require.True(t, ok)
	assert.Equal(t, backup.BackupErrorTypeDump, errType)
	assert.Contains(t, err.Error(), "connection to server failed")
}

func TestDumpRunner_ContextCancellation(t *testing.T) {
	command := fakeTool(t, "pg_dump", fakeDumpHang)
	runner := NewDumpRunner(testOptions(), nil)
	runner.dumpCommand = command

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	start := time.Now()
	err := runner.DumpFull(ctx, "appdb", backup.FormatPlain, &out)

	require.Error(t, err, "an expired context must kill the dump")
	assert.ErrorIs(t, err, context.DeadlineExceeded, "the cause must be the context error, not the kill signal")
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestDumpRunner_MissingBinary(t *testing.T) {
	runner := NewDumpRunner(testOptions(), nil)
	runner.dumpCommand = filepath.Join(t.TempDir(), "no-such-pg_dump")

	var out bytes.Buffer
	err := runner.DumpFull(context.Background(), "appdb", backup.FormatPlain, &out)

	require.Error(t, err)
	errType, ok := backup.ErrorTypeOf(err)
	require.True(t, ok)
	assert.Equal(t, backup.BackupErrorTypeDump, errType)
}
