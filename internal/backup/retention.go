package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"postgres-backup-rotate/internal/logging"
)

const dateLayout = "2006-01-02"

// ISOWeekday returns the ISO-8601 weekday number for t (Monday=1 .. Sunday=7)
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// TierFor classifies a run date. The first of the month is always a
// monthly run, the configured weekday a weekly run, every other day a
// daily run.
func TierFor(date time.Time, weeklyAnchor int) RetentionTier {
	if date.Day() == 1 {
		return TierMonthly
	}
	if ISOWeekday(date) == weeklyAnchor {
		return TierWeekly
	}
	return TierDaily
}

// DirectoryName returns the backup directory name for a run date and tier
func DirectoryName(date time.Time, tier RetentionTier) string {
	return fmt.Sprintf("%s-%s", date.Format(dateLayout), tier)
}

// ParseDirectoryName splits a backup directory name back into its run
// date and tier. Names that do not match {YYYY-MM-DD}-{tier} report ok
// as false.
func ParseDirectoryName(name string) (time.Time, RetentionTier, bool) {
	for _, tier := range []RetentionTier{TierDaily, TierWeekly, TierMonthly} {
		suffix := "-" + tier.String()
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		date, err := time.Parse(dateLayout, strings.TrimSuffix(name, suffix))
		if err != nil {
			return time.Time{}, "", false
		}
		return date, tier, true
	}
	return time.Time{}, "", false
}

// daysBetween counts whole calendar days from one date to another,
// ignoring the time of day of either
func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// EvictionPolicy holds the retention windows for expired directories
type EvictionPolicy struct {
	DaysToKeep  int
	WeeksToKeep int
}

// Expired reports whether a directory of the given tier, created on
// dirDate, has aged out as of today. Monthly directories expire
// unconditionally: a monthly run replaces every previous monthly backup.
func (p EvictionPolicy) Expired(tier RetentionTier, dirDate, today time.Time) bool {
	age := daysBetween(dirDate, today)
	switch tier {
	case TierMonthly:
		return true
	case TierWeekly:
		return age > p.WeeksToKeep*7+1
	case TierDaily:
		return age > p.DaysToKeep
	default:
		return false
	}
}

// EvictionResult represents the outcome of one eviction sweep
type EvictionResult struct {
	Tier     RetentionTier
	Examined int
	Removed  []string
	Errors   []string
	DryRun   bool
}

// ErrorCount returns the number of directories that could not be removed
func (r *EvictionResult) ErrorCount() int {
	return len(r.Errors)
}

// Evictor removes expired backup directories for the tier being run
type Evictor struct {
	root   string
	policy EvictionPolicy
	logger *logging.Logger
}

// NewEvictor creates an evictor rooted at the backup directory
func NewEvictor(root string, policy EvictionPolicy, logger *logging.Logger) *Evictor {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Evictor{
		root:   root,
		policy: policy,
		logger: logger,
	}
}

// Evict removes expired directories of the run's tier. Expiry is judged
// by the date encoded in each directory name, never by filesystem
// timestamps, so restored or copied trees age out on schedule. Entries
// whose names do not parse as {date}-{tier} are never touched, and
// removal failures are recorded rather than aborting the sweep.
func (e *Evictor) Evict(tier RetentionTier, today time.Time, dryRun bool) *EvictionResult {
	result := &EvictionResult{Tier: tier, DryRun: dryRun}

	entries, err := os.ReadDir(e.root)
	if err != nil {
		if os.IsNotExist(err) {
			// First run: nothing to evict yet
			return result
		}
		msg := fmt.Sprintf("cannot read backup directory %s: %v", e.root, err)
		result.Errors = append(result.Errors, msg)
		e.logger.Error(msg)
		return result
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dirDate, dirTier, ok := ParseDirectoryName(entry.Name())
		if !ok || dirTier != tier {
			continue
		}

		result.Examined++
		if !e.policy.Expired(tier, dirDate, today) {
			continue
		}

		path := filepath.Join(e.root, entry.Name())
		if dryRun {
			result.Removed = append(result.Removed, entry.Name())
			e.logger.LogEviction(path, tier.String(), true, nil)
			continue
		}

		if err := os.RemoveAll(path); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", entry.Name(), err))
			e.logger.LogEviction(path, tier.String(), false, err)
			continue
		}

		result.Removed = append(result.Removed, entry.Name())
		e.logger.LogEviction(path, tier.String(), false, nil)
	}

	return result
}
