package reconcile

import (
	"strconv"
	"strings"
)

// NormalizeAltitude turns a filed cruise altitude into feet. Flight levels
// ("FL350") are expanded, plain numbers pass through, and anything else is 0.
func NormalizeAltitude(filed string) int {
	filed = strings.ToUpper(strings.TrimSpace(filed))
	if strings.HasPrefix(filed, "FL") {
		level, err := strconv.Atoi(strings.TrimPrefix(filed, "FL"))
		if err != nil {
			return 0
		}
		return level * 100
	}

	alt, err := strconv.Atoi(filed)
	if err != nil {
		return 0
	}
	return alt
}

// JoinText flattens a multi-line broadcast into one line.
func JoinText(lines []string) string {
	return strings.Join(lines, " - ")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
