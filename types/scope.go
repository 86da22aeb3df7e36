package types

// ScopeKind identifies a level of the cloud resource hierarchy
type ScopeKind string

const (
	KindOrganization ScopeKind = "organization"
	KindFolder       ScopeKind = "folder"
	KindProject      ScopeKind = "project"
)

// ScopeNode is one node of the organization hierarchy, immutable once discovered
type ScopeNode struct {
	Kind     ScopeKind         `json:"kind"`
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	ParentID string            `json:"parent_id,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`
	Path     []string          `json:"path"` // scope IDs from the root down to this node
}

// IsProject reports whether the node is a hierarchy leaf
func (s ScopeNode) IsProject() bool {
	return s.Kind == KindProject
}

// ChildPath builds the hierarchy path for a direct child of this node
func (s ScopeNode) ChildPath(childID string) []string {
	path := make([]string, 0, len(s.Path)+1)
	path = append(path, s.Path...)
	return append(path, childID)
}

// HasLabel checks a single label key/value pair
func (s ScopeNode) HasLabel(key, value string) bool {
	if s.Labels == nil {
		return false
	}
	return s.Labels[key] == value
}
