package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"postgres-backup-rotate/internal/backup"
)

// RunPresenter renders run banners and summaries for humans. The log
// stream records the same facts; this is the terminal-friendly view.
type RunPresenter struct {
	out    io.Writer
	colors ColorSystem
	icons  *IconSystem
}

// NewRunPresenter creates a presenter writing to out
func NewRunPresenter(out io.Writer, colors ColorSystem, icons *IconSystem) *RunPresenter {
	if colors == nil {
		colors = NewColorSystem(DefaultColorTheme())
	}
	if icons == nil {
		icons = NewIconSystem()
	}
	return &RunPresenter{out: out, colors: colors, icons: icons}
}

// Render prints the full run recap: banner, eviction outcome, artifact
// table, failure details, directory listing and totals
func (p *RunPresenter) Render(report *backup.RunReport) {
	p.Banner(report)
	p.Summary(report)
}

// Banner prints the run header
func (p *RunPresenter) Banner(report *backup.RunReport) {
	run := report.Run
	title := fmt.Sprintf("PostgreSQL backup run %s, %s tier", run.ID, run.Tier)
	if report.DryRun {
		title += " (dry run)"
	}

	separator := strings.Repeat("=", len(title)+4)
	primary := p.colors.Theme().Primary
	fmt.Fprintln(p.out, p.colors.Colorize(separator, primary))
	fmt.Fprintf(p.out, "  %s\n", p.colors.Colorize(title, primary))
	fmt.Fprintln(p.out, p.colors.Colorize(separator, primary))
}

// Summary prints everything below the banner
func (p *RunPresenter) Summary(report *backup.RunReport) {
	p.printEviction(report.Eviction)

	if report.DryRun {
		p.printPlan(report)
		return
	}

	p.printArtifacts(report)
	p.printFailures(report)
	p.printListing(report)
	p.printTotals(report)
}

func (p *RunPresenter) printEviction(eviction *backup.EvictionResult) {
	if eviction == nil {
		return
	}

	p.section(fmt.Sprintf("Retention (%s)", eviction.Tier))
	if len(eviction.Removed) == 0 && len(eviction.Errors) == 0 {
		fmt.Fprintf(p.out, "  Nothing to evict, %d %s directories within the window\n", eviction.Examined, eviction.Tier)
	}
	for _, name := range eviction.Removed {
		verb := "Evicted"
		if eviction.DryRun {
			verb = "Would evict"
		}
		fmt.Fprintf(p.out, "  %s %s %s\n", p.icons.RenderIconWithColor("bullet", p.colors), verb, name)
	}
	for _, msg := range eviction.Errors {
		fmt.Fprintf(p.out, "  %s %s\n", p.icons.RenderIconWithColor("warning", p.colors), p.colors.Colorize(msg, p.colors.Theme().Warning))
	}
	fmt.Fprintln(p.out)
}

// printPlan renders what a dry run would have done
func (p *RunPresenter) printPlan(report *backup.RunReport) {
	p.section("Planned artifacts")
	for _, name := range report.Planned {
		fmt.Fprintf(p.out, "  %s %s\n", p.icons.RenderIconWithColor("bullet", p.colors), name)
	}
	for _, name := range report.PlannedSkips {
		fmt.Fprintf(p.out, "  %s %s (excluded)\n", p.icons.RenderIconWithColor("skipped", p.colors), name)
	}
	fmt.Fprintln(p.out)
	fmt.Fprintf(p.out, "Dry run: nothing was written\n")
}

func (p *RunPresenter) printArtifacts(report *backup.RunReport) {
	if len(report.Results) == 0 {
		return
	}

	p.section("Artifacts")
	table := NewTableFormatter(p.colors)
	table.SetHeaders("NAME", "KIND", "FORMAT", "STATUS", "SIZE", "TIME")
	table.SetColumnAlignment(4, AlignRight)
	table.SetColumnAlignment(5, AlignRight)

	for _, result := range report.Results {
		size, elapsed := "-", "-"
		if result.Status == backup.StatusSucceeded {
			size = formatBytes(result.ArchiveBytes)
			elapsed = formatDuration(result.Duration)
		} else if result.Status == backup.StatusFailed {
			elapsed = formatDuration(result.Duration)
		}
		table.AddRow(result.Name, string(result.Kind), string(result.Format), p.statusCell(result.Status), size, elapsed)
	}
	table.RenderTo(p.out)
	fmt.Fprintln(p.out)
}

func (p *RunPresenter) printFailures(report *backup.RunReport) {
	failed := 0
	for _, result := range report.Results {
		if result.Failed() {
			failed++
		}
	}
	if failed == 0 {
		return
	}

	p.section("Failures")
	for _, result := range report.Results {
		if !result.Failed() {
			continue
		}
		fmt.Fprintf(p.out, "  %s %s at %s stage: %s\n",
			p.icons.RenderIconWithColor("failed", p.colors),
			result.Name, result.Stage, p.colors.Colorize(result.ErrorMessage(), p.colors.Theme().Error))
	}
	fmt.Fprintln(p.out)
}

func (p *RunPresenter) printListing(report *backup.RunReport) {
	if len(report.Listing) == 0 {
		return
	}

	p.section(fmt.Sprintf("Backup directory %s", report.Run.Dir))
	table := NewTableFormatter(p.colors)
	table.SetHeaders("FILE", "SIZE")
	table.SetColumnAlignment(1, AlignRight)
	for _, entry := range report.Listing {
		table.AddRow(entry.Name, formatBytes(entry.Size))
	}
	table.RenderTo(p.out)
	fmt.Fprintln(p.out)
}

func (p *RunPresenter) printTotals(report *backup.RunReport) {
	stats := backup.StatsFromResults(report.Results)

	outcome := fmt.Sprintf("%d succeeded, %d failed, %d skipped in %s",
		report.Succeeded(), report.Failed(), report.Skipped(), formatDuration(report.Elapsed))
	if report.Failed() > 0 {
		outcome = p.colors.Colorize(outcome, p.colors.Theme().Warning)
	} else {
		outcome = p.colors.Colorize(outcome, p.colors.Theme().Success)
	}
	fmt.Fprintln(p.out, outcome)

	if stats.PayloadBytes > 0 {
		fmt.Fprintf(p.out, "%s of dumps packed into %s (ratio %.2f, %.1f MB/s)\n",
			formatBytes(stats.PayloadBytes), formatBytes(stats.ArchiveBytes),
			stats.CompressionRatio(), stats.Throughput())
	}
}

func (p *RunPresenter) statusCell(status backup.ArtifactStatus) string {
	switch status {
	case backup.StatusSucceeded:
		return p.icons.RenderIcon("success")
	case backup.StatusFailed:
		return p.icons.RenderIcon("failed")
	case backup.StatusSkipped:
		return p.icons.RenderIcon("skipped")
	default:
		return string(status)
	}
}

func (p *RunPresenter) section(title string) {
	fmt.Fprintf(p.out, "%s %s\n", p.colors.Colorize("===", p.colors.Theme().Highlight), p.colors.Colorize(title, p.colors.Theme().Highlight))
}

// formatBytes renders a byte count in human-readable form
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatDuration rounds a duration to a display-friendly precision
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return d.Round(time.Second).String()
	case d >= time.Second:
		return d.Round(10 * time.Millisecond).String()
	default:
		return d.Round(time.Millisecond).String()
	}
}
