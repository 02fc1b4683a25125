package utils

import (
	"strings"
	"time"
)

// TimestampLayout is the file-name friendly timestamp used for audio artifacts.
const TimestampLayout = "2006-01-02-15-04-05"

// IsEmpty reports whether s is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

func Ptr[T any](v T) *T {
	return &v
}

// FileTimestamp formats t as YYYY-MM-DD-HH-MM-SS.
func FileTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// Coalesce returns the first non-empty string.
func Coalesce(values ...string) string {
	for _, v := range values {
		if !IsEmpty(v) {
			return v
		}
	}
	return ""
}
