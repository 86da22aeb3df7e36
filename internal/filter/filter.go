// Package filter narrows which projects an extraction run visits.
package filter

import (
	"github.com/yairfalse/kartta/types"
)

// Filter controls which discovered projects enter the work queue.
type Filter struct {
	includeProjects map[string]bool
	excludeProjects map[string]bool
	includeLabels   map[string]string
	excludeLabels   map[string]string
}

// New creates a new Filter from the provided configuration.
func New(includeProjects, excludeProjects []string, includeLabels, excludeLabels map[string]string) *Filter {
	includeMap := make(map[string]bool)
	for _, id := range includeProjects {
		includeMap[id] = true
	}
	excludeMap := make(map[string]bool)
	for _, id := range excludeProjects {
		excludeMap[id] = true
	}

	return &Filter{
		includeProjects: includeMap,
		excludeProjects: excludeMap,
		includeLabels:   includeLabels,
		excludeLabels:   excludeLabels,
	}
}

// ShouldInclude returns true if the project passes ID and label filters.
func (f *Filter) ShouldInclude(project types.ScopeNode) bool {
	// Project ID whitelist - must be listed when set
	if len(f.includeProjects) > 0 && !f.includeProjects[project.ID] {
		return false
	}

	// Project ID blacklist - any match excludes
	if f.excludeProjects[project.ID] {
		return false
	}

	// Include labels (whitelist) - ALL must match
	if len(f.includeLabels) > 0 {
		for k, v := range f.includeLabels {
			if project.Labels == nil || project.Labels[k] != v {
				return false
			}
		}
	}

	// Exclude labels (blacklist) - ANY match excludes
	if len(f.excludeLabels) > 0 {
		for k, v := range f.excludeLabels {
			if project.Labels != nil && project.Labels[k] == v {
				return false
			}
		}
	}

	return true
}

// FilterProjects returns only projects that pass the filter.
func (f *Filter) FilterProjects(projects []types.ScopeNode) []types.ScopeNode {
	if f.IsEmpty() {
		return projects
	}

	filtered := make([]types.ScopeNode, 0, len(projects))
	for _, p := range projects {
		if f.ShouldInclude(p) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// IsEmpty returns true if no filters are configured.
func (f *Filter) IsEmpty() bool {
	return len(f.includeProjects) == 0 && len(f.excludeProjects) == 0 &&
		len(f.includeLabels) == 0 && len(f.excludeLabels) == 0
}
