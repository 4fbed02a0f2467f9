package logger

import (
	"strconv"
	"strings"
	"time"
)

// RoundMS rounds d to the millisecond. Negative durations become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// Preview joins at most limit values and notes how many were left out,
// e.g. "a, b (+3)".
func Preview(values []string, limit int) string {
	if len(values) == 0 {
		return ""
	}
	if limit <= 0 || len(values) <= limit {
		return strings.Join(values, ", ")
	}
	return strings.Join(values[:limit], ", ") + " (+" + strconv.Itoa(len(values)-limit) + ")"
}
