package types

// ResourceRef is a lightweight identifier returned by a listing call.
// Payload carries the raw listing body when the provider already has it,
// saving the extractor a second remote call.
type ResourceRef struct {
	ServiceTag string         `json:"service_tag"`
	Type       string         `json:"type"`
	TypePlural string         `json:"type_plural"`
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	ProjectID  string         `json:"project_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// ResourceRecord is one fully extracted resource bound for the output tree.
// Single ownership: created by an extractor, handed to the sink, not retained.
type ResourceRecord struct {
	ServiceTag string         `json:"service_tag" yaml:"service_tag"`
	Type       string         `json:"type" yaml:"type"`
	TypePlural string         `json:"type_plural" yaml:"type_plural"`
	ID         string         `json:"id" yaml:"id"`
	Name       string         `json:"name" yaml:"name"`
	ProjectID  string         `json:"project_id" yaml:"project_id"`
	ScopePath  []string       `json:"scope_path" yaml:"scope_path"`
	Payload    map[string]any `json:"payload" yaml:"payload"`
}
