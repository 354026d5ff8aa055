package backup

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackupRun(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	run := NewBackupRun(TierMonthly, date, "/var/backups/postgres/2024-03-01-monthly")

	require.NotNil(t, run)
	assert.NotEmpty(t, run.ID)
	assert.Contains(t, run.ID, "run-")
	assert.Equal(t, TierMonthly, run.Tier)
	assert.Equal(t, date, run.Date)
	assert.Equal(t, "/var/backups/postgres/2024-03-01-monthly", run.Dir)
	assert.False(t, run.StartedAt.IsZero())
}

func TestArtifactSpec_PayloadName(t *testing.T) {
	tests := []struct {
		name string
		spec ArtifactSpec
		want string
	}{
		{
			name: "globals dump",
			spec: ArtifactSpec{Name: "globals", Kind: KindGlobals, Format: FormatPlain},
			want: "globals.sql",
		},
		{
			name: "plain full dump",
			spec: ArtifactSpec{Name: "appdb", Kind: KindFull, Format: FormatPlain},
			want: "appdb.sql",
		},
		{
			name: "custom format dump keeps its name",
			spec: ArtifactSpec{Name: "appdb.custom", Kind: KindFull, Format: FormatCustom},
			want: "appdb.custom",
		},
		{
			name: "schema-only dump",
			spec: ArtifactSpec{Name: "appdb_schema", Kind: KindSchemaOnly, Format: FormatPlain},
			want: "appdb_schema.sql",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.spec.PayloadName())
		})
	}
}

func TestArtifactResult_Failed(t *testing.T) {
	succeeded := ArtifactResult{Status: StatusSucceeded}
	failed := ArtifactResult{Status: StatusFailed, Err: errors.New("dump exited 1")}
	skipped := ArtifactResult{Status: StatusSkipped}

	assert.False(t, succeeded.Failed())
	assert.True(t, failed.Failed())
	assert.False(t, skipped.Failed())

	assert.Empty(t, succeeded.ErrorMessage())
	assert.Equal(t, "dump exited 1", failed.ErrorMessage())
}

func TestSkippedResult(t *testing.T) {
	result := SkippedResult("app", KindFull, FormatPlain)

	assert.Equal(t, "app", result.Name)
	assert.Equal(t, KindFull, result.Kind)
	assert.Equal(t, StatusSkipped, result.Status)
	assert.NoError(t, result.Err)
	assert.False(t, result.Failed())
}

func TestRunReport_Counts(t *testing.T) {
	report := &RunReport{}
	report.Append(ArtifactResult{Name: "globals", Status: StatusSucceeded})
	report.Append(ArtifactResult{Name: "app", Status: StatusSucceeded})
	report.Append(ArtifactResult{Name: "billing", Status: StatusFailed, Err: errors.New("boom")})
	report.Append(SkippedResult("legacy", KindFull, FormatPlain))

	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, 1, report.Skipped())
	assert.True(t, report.HasFailures())
}

func TestRunReport_NoFailures(t *testing.T) {
	report := &RunReport{}
	report.Append(ArtifactResult{Name: "globals", Status: StatusSucceeded})

	assert.False(t, report.HasFailures())
	assert.Equal(t, 0, report.Failed())
}

func TestGenerateRunID(t *testing.T) {
	id1 := GenerateRunID()
	id2 := GenerateRunID()

	assert.NotEmpty(t, id1)
	assert.NotEmpty(t, id2)
	assert.NotEqual(t, id1, id2)
	assert.Contains(t, id1, "run-")
	assert.Contains(t, id2, "run-")
}
