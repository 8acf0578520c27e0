package service

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultWindow = "24h"
	DefaultBucket = "1h"
)

var windows = map[string]time.Duration{
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

var buckets = map[string]time.Duration{
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// ParseWindow resolves a lookback label; empty means DefaultWindow.
func ParseWindow(label string) (string, time.Duration, error) {
	return parseLabel(label, DefaultWindow, windows, "window")
}

// ParseBucket resolves a flow bucket label; empty means DefaultBucket.
func ParseBucket(label string) (string, time.Duration, error) {
	return parseLabel(label, DefaultBucket, buckets, "bucket")
}

func parseLabel(label, def string, table map[string]time.Duration, kind string) (string, time.Duration, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		label = def
	}
	d, ok := table[label]
	if !ok {
		return "", 0, fmt.Errorf("%w: unsupported %s %q", ErrInvalidInput, kind, label)
	}
	return label, d, nil
}

// SupportedWindows lists the accepted window labels, shortest first.
func SupportedWindows() []string {
	return []string{"1h", "6h", "24h", "7d", "30d"}
}

func SupportedBuckets() []string {
	return []string{"5m", "15m", "1h", "4h", "1d"}
}
