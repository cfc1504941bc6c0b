package utils

import (
	humanize "github.com/dustin/go-humanize"
)

// FormatBytes renders a byte count for display ("1.5 MiB").
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
