package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/nordapps/storecheck/internal/results"
)

// ANSI color codes for status display.
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that NO_COLOR is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// statusColor maps a result status to its display color.
func statusColor(status string) string {
	switch status {
	case results.StatusSuccess:
		return colorGreen
	case results.StatusSuccessNoButton:
		return colorYellow
	default:
		return colorRed
	}
}

// RenderResultTable renders installation results as an aligned table.
func RenderResultTable(records []results.Result) string {
	return renderResultTable(records, IsColorEnabled())
}

func renderResultTable(records []results.Result, color bool) string {
	if len(records) == 0 {
		return "No results recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-26s %-16s %-28s %-12s\n",
		"Package", "App", "Status", "Version"))
	sb.WriteString(strings.Repeat("─", 86))
	sb.WriteString("\n")

	for _, r := range records {
		status := r.InstallationStatus
		if color {
			status = statusColor(r.InstallationStatus) + status + colorReset
		}
		sb.WriteString(fmt.Sprintf("%-26s %-16s %-28s %-12s\n",
			truncate(r.PackageName, 26),
			truncate(r.AppName, 16),
			status,
			truncate(r.InstalledVersion, 12)))
	}

	return sb.String()
}

// truncate shortens s to max characters, appending an ellipsis marker.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
