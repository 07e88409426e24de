package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/handiism/music-manager/internal/dispatch"
	"github.com/handiism/music-manager/internal/errlog"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(0, 2)
)

// renderSummary formats the end-of-run counters.
func renderSummary(stats dispatch.Stats, failures map[errlog.Category]int, errorLog string, elapsed time.Duration) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Done") + dimStyle.Render(fmt.Sprintf(" in %s", elapsed.Round(time.Second))) + "\n\n")
	fmt.Fprintf(&b, "%s %d\n", successStyle.Render("Downloaded:"), stats.Downloaded)
	fmt.Fprintf(&b, "%s    %d\n", dimStyle.Render("Skipped:"), stats.Skipped)
	fmt.Fprintf(&b, "%s %d\n", warningStyle.Render("Not found:"), stats.Unresolved)
	fmt.Fprintf(&b, "%s     %d", errorStyle.Render("Failed:"), stats.Failed)

	if len(failures) > 0 {
		categories := make([]string, 0, len(failures))
		for c := range failures {
			categories = append(categories, string(c))
		}
		slices.Sort(categories)

		b.WriteString("\n\n" + dimStyle.Render("Logged to "+errorLog+":"))
		for _, c := range categories {
			fmt.Fprintf(&b, "\n  %-26s %d", c, failures[errlog.Category(c)])
		}
	}
	return boxStyle.Render(b.String())
}
