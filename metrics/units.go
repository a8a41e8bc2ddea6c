package metrics

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// MiB converts bytes to mebibytes, rounded to 2 decimal places.
func MiB(b uint64) float64 {
	return Round(float64(b)/(1<<20), 2)
}

// GiB converts bytes to gibibytes, rounded to 2 decimal places.
func GiB(b uint64) float64 {
	return Round(float64(b)/(1<<30), 2)
}

// Percent returns 100*part/total rounded to 2 decimal places, or 0 when
// total is 0.
func Percent(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return Round(100*float64(part)/float64(total), 2)
}

// FormatUptime renders d the way `uptime -p` does, e.g.
// "up 1 week, 2 days, 3 hours, 1 minute".
func FormatUptime(d time.Duration) string {
	minutes := int64(d / time.Minute)
	units := []struct {
		name string
		size int64
	}{
		{"week", 7 * 24 * 60},
		{"day", 24 * 60},
		{"hour", 60},
		{"minute", 1},
	}

	var parts []string
	for _, u := range units {
		n := minutes / u.size
		minutes %= u.size
		if n == 0 {
			continue
		}
		parts = append(parts, plural(n, u.name))
	}
	if len(parts) == 0 {
		return "up 0 minutes"
	}
	return "up " + strings.Join(parts, ", ")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
