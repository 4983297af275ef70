// Package helpers holds formatting and filesystem utilities shared by the
// stress test tools.
package helpers

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// Formatting
// =============================================================================

// FormatBytes formats a byte count in binary units (KB = 1024 B).
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatDuration formats a duration for log lines.
//
//   - below 1s: whole ns/µs, or ms with up to 3 decimals ("123.456ms")
//   - below 1m: seconds with up to 2 decimals ("45.67s")
//   - below 1h: "3m 45.67s"
//   - otherwise: "2h 30m 15s", dropping trailing zero parts
func FormatDuration(d time.Duration) string {
	switch {
	case d < 0:
		return "-" + FormatDuration(-d)
	case d == 0:
		return "0s"
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return formatFloat(float64(d)/float64(time.Millisecond), 3) + "ms"
	case d < time.Minute:
		return formatFloat(d.Seconds(), 2) + "s"
	case d < time.Hour:
		mins := int(d.Minutes())
		rest := (d - time.Duration(mins)*time.Minute).Seconds()
		if rest < 0.01 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm %ss", mins, formatFloat(rest, 2))
	}

	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	parts := []string{fmt.Sprintf("%dh", hours)}
	if mins != 0 || secs != 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	if secs != 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	return strings.Join(parts, " ")
}

// formatFloat formats value with up to maxDecimals, trimming trailing zeros.
func formatFloat(value float64, maxDecimals int) string {
	s := strconv.FormatFloat(value, 'f', maxDecimals, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s
}

// FormatNumber formats a count with thousands separators.
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// FormatPercent formats a percentage with the given precision.
func FormatPercent(value float64, precision int) string {
	return strconv.FormatFloat(value, 'f', precision, 64) + "%"
}

// Percent returns part as a percentage of whole, or 0 when whole is 0.
func Percent(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return 100 * float64(part) / float64(whole)
}

// FormatRate formats items per second with K/M suffixes.
func FormatRate(count int64, duration time.Duration) string {
	if duration <= 0 {
		return "0/s"
	}
	rate := float64(count) / duration.Seconds()
	switch {
	case rate >= 1e6:
		return fmt.Sprintf("%.2fM/s", rate/1e6)
	case rate >= 1e3:
		return fmt.Sprintf("%.2fK/s", rate/1e3)
	}
	return fmt.Sprintf("%.2f/s", rate)
}

// FormatTimestamp formats a UTC wall clock time with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05.000")
}

// =============================================================================
// Filesystem
// =============================================================================

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file or directory exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir checks if path is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
