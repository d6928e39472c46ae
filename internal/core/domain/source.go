package domain

import "strings"

// Capability tags used for source filtering. The vocabulary is open:
// configs may introduce new tags, these are the ones the core reacts to.
const (
	CapabilityRealtime = "realtime"
	CapabilityBackup   = "backup"
	CapabilityFallback = "fallback"
	CapabilityOffline  = "offline"
)

// CachedSourcePrefix marks pseudo-sources that alias the cache itself
// and must never trigger an upstream call.
const CachedSourcePrefix = "cached_"

// SourceDescriptor identifies one upstream source in a fallback chain.
// Lower priority values are tried first.
type SourceDescriptor struct {
	Name         string
	Priority     int
	Capabilities []string
}

// HasCapability reports whether the source carries the given tag.
func (s SourceDescriptor) HasCapability(tag string) bool {
	for _, c := range s.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}

// IsCacheAlias reports whether the source is a pure cache alias
// (e.g. "cached_data") rather than a real upstream.
func (s SourceDescriptor) IsCacheAlias() bool {
	return strings.HasPrefix(s.Name, CachedSourcePrefix)
}
