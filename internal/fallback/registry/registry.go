// Package registry holds the ranked source configuration per data type.
// The registry is built once at startup and read-only afterwards.
package registry

import (
	"sort"

	"github.com/vietddude/fetcher/internal/core/domain"
)

// Registry maps data types to their ordered fallback chains.
type Registry struct {
	sources map[string][]domain.SourceDescriptor
}

// New builds a registry from the given configuration. The input is
// copied; registration order is preserved for priority ties.
func New(sources map[string][]domain.SourceDescriptor) *Registry {
	copied := make(map[string][]domain.SourceDescriptor, len(sources))
	for dataType, list := range sources {
		copied[dataType] = append([]domain.SourceDescriptor(nil), list...)
	}
	return &Registry{sources: copied}
}

// Sources returns the fallback chain for a data type, optionally
// filtered to sources carrying the given capability tag, sorted
// ascending by priority. The sort is stable: ties keep registration
// order.
func (r *Registry) Sources(dataType, capability string) []domain.SourceDescriptor {
	var result []domain.SourceDescriptor
	for _, s := range r.sources[dataType] {
		if capability != "" && !s.HasCapability(capability) {
			continue
		}
		result = append(result, s)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Priority < result[j].Priority
	})
	return result
}

// DataTypes returns all configured data types.
func (r *Registry) DataTypes() []string {
	types := make([]string, 0, len(r.sources))
	for dataType := range r.sources {
		types = append(types, dataType)
	}
	sort.Strings(types)
	return types
}
