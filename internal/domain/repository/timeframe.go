package repository

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var intervalRe = regexp.MustCompile(`^(\d+)(m|h|d|w)$`)

// IntervalSeconds converts intervals like 1m/5m/1h/1d/1w into seconds.
func IntervalSeconds(interval string) (int64, error) {
	m := intervalRe.FindStringSubmatch(strings.TrimSpace(interval))
	if m == nil {
		return 0, fmt.Errorf("unsupported interval %q: use like 1m,5m,1h,1d,1w", interval)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("unsupported interval %q", interval)
	}
	switch m[2] {
	case "m":
		return n * 60, nil
	case "h":
		return n * 3600, nil
	case "d":
		return n * 86400, nil
	case "w":
		return n * 7 * 86400, nil
	}
	return 0, fmt.Errorf("unsupported interval unit %q", m[2])
}

// BucketStart floors ts to the start of its interval bucket.
func BucketStart(ts, intervalSeconds int64) int64 {
	return ts / intervalSeconds * intervalSeconds
}

// ValidIntervals filters a list down to parseable intervals, preserving order.
func ValidIntervals(intervals []string) []string {
	out := make([]string, 0, len(intervals))
	for _, iv := range intervals {
		iv = strings.TrimSpace(iv)
		if _, err := IntervalSeconds(iv); err == nil {
			out = append(out, iv)
		}
	}
	return out
}
