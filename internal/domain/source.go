package domain

import (
	"sort"
	"sync"
)

// SourceState tells "no data" apart from "provider failed".
type SourceState string

const (
	SourceOK         SourceState = "ok"
	SourceEmpty      SourceState = "empty"
	SourceMissingKey SourceState = "missing_key"
	SourceError      SourceState = "error"
)

type SourceStatus struct {
	Provider string      `json:"provider"`
	Op       string      `json:"op"`
	State    SourceState `json:"state"`
	Error    string      `json:"error,omitempty"`
}

type SourceReport []SourceStatus

// Degraded reports whether any source did not answer with data.
func (r SourceReport) Degraded() bool {
	for _, s := range r {
		if s.State != SourceOK {
			return true
		}
	}
	return false
}

// State returns the recorded state for provider/op, or "" if absent.
func (r SourceReport) State(provider, op string) SourceState {
	for _, s := range r {
		if s.Provider == provider && s.Op == op {
			return s.State
		}
	}
	return ""
}

// SourceCollector is a concurrency-safe SourceReport builder for fan-out code.
type SourceCollector struct {
	mu      sync.Mutex
	entries SourceReport
}

func (c *SourceCollector) Add(s SourceStatus) {
	c.mu.Lock()
	c.entries = append(c.entries, s)
	c.mu.Unlock()
}

// Report returns the collected statuses ordered by provider then op.
func (c *SourceCollector) Report() SourceReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(SourceReport, len(c.entries))
	copy(out, c.entries)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Op < out[j].Op
	})
	return out
}
