package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestISOWeekday(t *testing.T) {
	tests := []struct {
		name string
		day  time.Time
		want int
	}{
		{name: "monday", day: date(2024, time.March, 4), want: 1},
		{name: "friday", day: date(2024, time.March, 8), want: 5},
		{name: "saturday", day: date(2024, time.March, 9), want: 6},
		{name: "sunday maps to seven", day: date(2024, time.March, 3), want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ISOWeekday(tt.day))
		})
	}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		name   string
		day    time.Time
		anchor int
		want   RetentionTier
	}{
		{
			name:   "first of month is monthly",
			day:    date(2024, time.March, 1),
			anchor: 5,
			want:   TierMonthly,
		},
		{
			// 2024-03-01 is a Friday: the monthly rule wins over the weekly anchor
			name:   "first of month beats weekly anchor",
			day:    date(2024, time.March, 1),
			anchor: ISOWeekday(date(2024, time.March, 1)),
			want:   TierMonthly,
		},
		{
			name:   "anchor weekday is weekly",
			day:    date(2024, time.March, 8),
			anchor: 5,
			want:   TierWeekly,
		},
		{
			name:   "sunday anchor",
			day:    date(2024, time.March, 3),
			anchor: 7,
			want:   TierWeekly,
		},
		{
			name:   "ordinary day is daily",
			day:    date(2024, time.March, 5),
			anchor: 5,
			want:   TierDaily,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TierFor(tt.day, tt.anchor))
		})
	}
}

func TestDirectoryName(t *testing.T) {
	assert.Equal(t, "2024-03-01-monthly", DirectoryName(date(2024, time.March, 1), TierMonthly))
	assert.Equal(t, "2024-03-08-weekly", DirectoryName(date(2024, time.March, 8), TierWeekly))
	assert.Equal(t, "2024-03-05-daily", DirectoryName(date(2024, time.March, 5), TierDaily))
}

func TestParseDirectoryName(t *testing.T) {
	tests := []struct {
		name     string
		dir      string
		wantDate time.Time
		wantTier RetentionTier
		wantOK   bool
	}{
		{
			name:     "daily directory",
			dir:      "2024-03-05-daily",
			wantDate: date(2024, time.March, 5),
			wantTier: TierDaily,
			wantOK:   true,
		},
		{
			name:     "weekly directory",
			dir:      "2024-03-08-weekly",
			wantDate: date(2024, time.March, 8),
			wantTier: TierWeekly,
			wantOK:   true,
		},
		{
			name:     "monthly directory",
			dir:      "2024-03-01-monthly",
			wantDate: date(2024, time.March, 1),
			wantTier: TierMonthly,
			wantOK:   true,
		},
		{name: "unrelated name", dir: "scratch", wantOK: false},
		{name: "bad date part", dir: "someday-daily", wantOK: false},
		{name: "missing tier suffix", dir: "2024-03-05", wantOK: false},
		{name: "unknown tier suffix", dir: "2024-03-05-hourly", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotDate, gotTier, ok := ParseDirectoryName(tt.dir)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantDate, gotDate)
				assert.Equal(t, tt.wantTier, gotTier)
			}
		})
	}
}

func TestDirectoryNameRoundTrip(t *testing.T) {
	day := date(2024, time.July, 19)
	for _, tier := range []RetentionTier{TierDaily, TierWeekly, TierMonthly} {
		name := DirectoryName(day, tier)
		gotDate, gotTier, ok := ParseDirectoryName(name)
		require.True(t, ok, "name %q should parse", name)
		assert.Equal(t, day, gotDate)
		assert.Equal(t, tier, gotTier)
	}
}

func TestEvictionPolicy_Expired(t *testing.T) {
	policy := EvictionPolicy{DaysToKeep: 7, WeeksToKeep: 5}
	today := date(2024, time.June, 1)

	tests := []struct {
		name    string
		tier    RetentionTier
		dirDate time.Time
		want    bool
	}{
		{
			name:    "monthly expires unconditionally",
			tier:    TierMonthly,
			dirDate: today,
			want:    true,
		},
		{
			name:    "old monthly expires",
			tier:    TierMonthly,
			dirDate: date(2023, time.June, 1),
			want:    true,
		},
		{
			name:    "daily at the window boundary survives",
			tier:    TierDaily,
			dirDate: today.AddDate(0, 0, -7),
			want:    false,
		},
		{
			name:    "daily one day past the window expires",
			tier:    TierDaily,
			dirDate: today.AddDate(0, 0, -8),
			want:    true,
		},
		{
			name:    "fresh daily survives",
			tier:    TierDaily,
			dirDate: today.AddDate(0, 0, -1),
			want:    false,
		},
		{
			// weekly window is weeks*7+1 days, so 36 days survives with 5 weeks kept
			name:    "weekly at the window boundary survives",
			tier:    TierWeekly,
			dirDate: today.AddDate(0, 0, -36),
			want:    false,
		},
		{
			name:    "weekly past the window expires",
			tier:    TierWeekly,
			dirDate: today.AddDate(0, 0, -37),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Expired(tt.tier, tt.dirDate, today))
		})
	}
}

func TestEvictor_DailySweep(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{
		"2024-03-10-daily",
		"2024-03-15-daily",
		"2024-03-13-daily",
		"2024-03-08-weekly",
		"2024-02-01-monthly",
		"notes",
	} {
		require.NoError(t, os.Mkdir(filepath.Join(root, dir), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o644))

	evictor := NewEvictor(root, EvictionPolicy{DaysToKeep: 7, WeeksToKeep: 5}, nil)
	result := evictor.Evict(TierDaily, date(2024, time.March, 20), false)

	assert.Equal(t, 3, result.Examined)
	assert.Equal(t, []string{"2024-03-10-daily"}, result.Removed)
	assert.Empty(t, result.Errors)

	// Other tiers, unparseable names, and plain files are untouched
	for _, kept := range []string{
		"2024-03-15-daily",
		"2024-03-13-daily",
		"2024-03-08-weekly",
		"2024-02-01-monthly",
		"notes",
		"stray.txt",
	} {
		_, err := os.Stat(filepath.Join(root, kept))
		assert.NoError(t, err, "%s should survive a daily sweep", kept)
	}
	_, err := os.Stat(filepath.Join(root, "2024-03-10-daily"))
	assert.True(t, os.IsNotExist(err))
}

func TestEvictor_MonthlySweepRemovesAllMonthlies(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{
		"2023-12-01-monthly",
		"2024-01-01-monthly",
		"2024-02-01-monthly",
		"2024-02-28-daily",
	} {
		require.NoError(t, os.Mkdir(filepath.Join(root, dir), 0o755))
	}

	evictor := NewEvictor(root, EvictionPolicy{DaysToKeep: 7, WeeksToKeep: 5}, nil)
	result := evictor.Evict(TierMonthly, date(2024, time.March, 1), false)

	assert.Equal(t, 3, result.Examined)
	assert.Len(t, result.Removed, 3)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-02-28-daily", entries[0].Name())
}

func TestEvictor_DryRunRemovesNothing(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "2024-01-01-monthly"), 0o755))

	evictor := NewEvictor(root, EvictionPolicy{DaysToKeep: 7, WeeksToKeep: 5}, nil)
	result := evictor.Evict(TierMonthly, date(2024, time.March, 1), true)

	assert.True(t, result.DryRun)
	assert.Equal(t, []string{"2024-01-01-monthly"}, result.Removed)

	_, err := os.Stat(filepath.Join(root, "2024-01-01-monthly"))
	assert.NoError(t, err, "dry run must leave the directory in place")
}

func TestEvictor_MissingRoot(t *testing.T) {
	evictor := NewEvictor(filepath.Join(t.TempDir(), "never-created"), EvictionPolicy{DaysToKeep: 7, WeeksToKeep: 5}, nil)
	result := evictor.Evict(TierDaily, date(2024, time.March, 20), false)

	assert.Zero(t, result.Examined)
	assert.Empty(t, result.Removed)
	assert.Empty(t, result.Errors)
}
