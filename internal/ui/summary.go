package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/averill/bisync/internal/model"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("6")).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("6"))

	labelStyle = lipgloss.NewStyle().
			Width(24).
			Foreground(lipgloss.Color("7"))
)

var titleCaser = cases.Title(language.English)

// DirectionLabel renders a direction in title case for display.
func DirectionLabel(d model.Direction) string {
	return titleCaser.String(d.String())
}

// Banner renders the pre-run information box.
func Banner(cfg *model.RunConfig) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("bisync " + DirectionLabel(cfg.Direction)))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	row("Source", cfg.SourceRoot())
	row("Destination", cfg.DestRoot())
	if cfg.AreaMode == model.AreaReadOnly {
		row("Area", "read-only backup")
	} else {
		row("Area", "shared backup")
	}
	if cfg.DryRun {
		row("State", Warning("SIMULATION (no changes will be made)"))
	}
	if cfg.DeleteExtraneous {
		row("Deletion", Success("enabled (extraneous files removed)"))
	}
	if cfg.OverwriteAlways {
		row("Overwrite", Success("enabled"))
	} else {
		row("Overwrite", "safe mode (update-only)")
	}
	if len(cfg.ExplicitElements) > 0 {
		items := make([]string, len(cfg.ExplicitElements))
		for i, el := range cfg.ExplicitElements {
			items[i] = el.String()
		}
		row("Elements", strings.Join(items, ", "))
	}
	if n := len(cfg.CLIExclusions); n > 0 {
		row("CLI exclusions", fmt.Sprintf("%d pattern(s)", n))
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// Summary renders the final statistics block. Every counter prints
// regardless of success so a partial failure is diagnosable from one
// output.
func Summary(cfg *model.RunConfig, stats *model.RunStats) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Synchronization summary"))
	b.WriteString("\n\n")

	row := func(label string, value any) {
		b.WriteString(labelStyle.Render(label))
		fmt.Fprint(&b, value)
		b.WriteString("\n")
	}

	row("Elements processed", stats.ElementsProcessed)
	row("Files transferred", stats.FilesTransferred)
	if cfg.DeleteExtraneous {
		row("Files deleted", stats.FilesDeleted)
	}
	row("Links detected", stats.LinksDetected)
	row("Links created", stats.LinksCreated)
	row("Links existing", stats.LinksExisting)
	if stats.LinksFailed > 0 {
		row("Links failed", Error(fmt.Sprint(stats.LinksFailed)))
	} else {
		row("Links failed", 0)
	}
	if stats.SyncErrors > 0 {
		row("Sync errors", Error(fmt.Sprint(stats.SyncErrors)))
	} else {
		row("Sync errors", 0)
	}
	row("Elapsed", formatDuration(stats.Elapsed))
	row("Average rate", fmt.Sprintf("%.2f files/s", stats.AverageRate()))
	if cfg.DryRun {
		row("Mode", Warning("SIMULATION"))
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// formatDuration renders an elapsed duration in h/m/s buckets.
func formatDuration(d time.Duration) string {
	total := int(d.Seconds())
	h, rem := total/3600, total%3600
	m, s := rem/60, rem%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
