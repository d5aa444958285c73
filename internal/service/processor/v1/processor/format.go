package processor

import (
	"fmt"
	"strings"
)

// FormatDurationDays renders a return period in days as human-readable text
// using 30-day months. Zero and negative periods render as an em dash.
func FormatDurationDays(days int) string {
	if days <= 0 {
		return "—"
	}
	months := days / 30
	rest := days % 30
	var parts []string
	if months > 0 {
		parts = append(parts, pluralize(months, "month"))
	}
	if rest > 0 {
		parts = append(parts, pluralize(rest, "day"))
	}
	return strings.Join(parts, " and ")
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
