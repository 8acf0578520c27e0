package provider

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// flexFloat decodes JSON numbers that providers sometimes send as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", s, err)
	}
	*f = flexFloat(n)
	return nil
}

func (f flexFloat) Float() float64 { return float64(f) }

// uiAmount converts a raw integer token amount to display units.
func uiAmount(raw float64, decimals int) float64 {
	if decimals <= 0 {
		return raw
	}
	return raw / math.Pow10(decimals)
}

func parseTime(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func optFloat(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	out := *v
	return &out
}
