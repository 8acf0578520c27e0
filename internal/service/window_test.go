package service

import (
	"errors"
	"testing"
	"time"
)

func TestParseWindow(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in    string
		label string
		want  time.Duration
	}{
		{"", "24h", 24 * time.Hour},
		{"1h", "1h", time.Hour},
		{" 7D ", "7d", 7 * 24 * time.Hour},
		{"30d", "30d", 30 * 24 * time.Hour},
	}
	for _, tc := range cases {
		label, d, err := ParseWindow(tc.in)
		if err != nil {
			t.Fatalf("ParseWindow(%q): %v", tc.in, err)
		}
		if label != tc.label || d != tc.want {
			t.Errorf("ParseWindow(%q) = %q %v, want %q %v", tc.in, label, d, tc.label, tc.want)
		}
	}

	if _, _, err := ParseWindow("2w"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestParseBucket(t *testing.T) {
	t.Parallel()

	label, d, err := ParseBucket("")
	if err != nil || label != "1h" || d != time.Hour {
		t.Fatalf("default bucket = %q %v %v", label, d, err)
	}
	for _, b := range SupportedBuckets() {
		if _, _, err := ParseBucket(b); err != nil {
			t.Errorf("ParseBucket(%q): %v", b, err)
		}
	}
	for _, w := range SupportedWindows() {
		if _, _, err := ParseWindow(w); err != nil {
			t.Errorf("ParseWindow(%q): %v", w, err)
		}
	}
	if _, _, err := ParseBucket("2m"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
