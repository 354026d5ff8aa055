package backup

import "time"

// RunStats aggregates per-artifact measurements for the run summary.
// The engine is single-threaded, so no locking is needed.
type RunStats struct {
	ArtifactsTotal     int
	ArtifactsSucceeded int
	ArtifactsFailed    int
	ArtifactsSkipped   int

	PayloadBytes int64
	ArchiveBytes int64

	TotalDuration time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
}

// Record folds one artifact outcome into the totals
func (s *RunStats) Record(result ArtifactResult) {
	s.ArtifactsTotal++

	switch result.Status {
	case StatusSucceeded:
		s.ArtifactsSucceeded++
	case StatusFailed:
		s.ArtifactsFailed++
	case StatusSkipped:
		// Skipped artifacts carry no sizes or timings
		s.ArtifactsSkipped++
		return
	}

	s.PayloadBytes += result.PayloadBytes
	s.ArchiveBytes += result.ArchiveBytes
	s.TotalDuration += result.Duration

	if s.MinDuration == 0 || result.Duration < s.MinDuration {
		s.MinDuration = result.Duration
	}
	if result.Duration > s.MaxDuration {
		s.MaxDuration = result.Duration
	}
}

// CompressionRatio returns archive bytes over payload bytes
func (s *RunStats) CompressionRatio() float64 {
	if s.PayloadBytes == 0 {
		return 1.0
	}
	return float64(s.ArchiveBytes) / float64(s.PayloadBytes)
}

// Throughput returns payload megabytes dumped per second of pipeline time
func (s *RunStats) Throughput() float64 {
	if s.TotalDuration.Seconds() == 0 {
		return 0
	}
	return float64(s.PayloadBytes) / (1024 * 1024) / s.TotalDuration.Seconds()
}

// StatsFromResults builds stats over a completed result set
func StatsFromResults(results []ArtifactResult) *RunStats {
	stats := &RunStats{}
	for _, result := range results {
		stats.Record(result)
	}
	return stats
}
