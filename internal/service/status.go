package service

import "sort"

// KeyedProvider is implemented by every provider client.
type KeyedProvider interface {
	Name() string
	Configured() bool
	KeyRequired() bool
}

const (
	KeyConfigured = "configured"
	KeyMissing    = "missing_key"
	KeyOptional   = "keyless"
)

type ProviderKeyStatus struct {
	Provider string `json:"provider"`
	Status   string `json:"status"`
}

// KeyStatus reports which providers have credentials. Keyless providers
// without a key still work, on their public tier.
func KeyStatus(providers ...KeyedProvider) []ProviderKeyStatus {
	out := make([]ProviderKeyStatus, 0, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		status := KeyConfigured
		switch {
		case p.Configured():
		case p.KeyRequired():
			status = KeyMissing
		default:
			status = KeyOptional
		}
		out = append(out, ProviderKeyStatus{Provider: p.Name(), Status: status})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

// CacheClearer is implemented by services holding TTL caches.
type CacheClearer interface {
	ClearCaches()
}

// ClearCaches empties every given service cache and returns how many were cleared.
func ClearCaches(services ...CacheClearer) int {
	n := 0
	for _, s := range services {
		if s == nil {
			continue
		}
		s.ClearCaches()
		n++
	}
	return n
}
