package types

import "time"

// WorkItem is one (project, service) extraction unit
type WorkItem struct {
	Project    ScopeNode `json:"project"`
	ServiceTag string    `json:"service_tag"`
}

// Key returns the checkpoint and deduplication identity of the item
func (w WorkItem) Key() string {
	return w.Project.ID + ":" + w.ServiceTag
}

// FailedItem pairs a work item with the error that sank it
type FailedItem struct {
	Item WorkItem `json:"item"`
	Err  error    `json:"-"`
}

// RunSummary reports the outcome of one extraction run
type RunSummary struct {
	Completed          int           `json:"completed"`
	Failed             []FailedItem  `json:"failed,omitempty"`
	SkippedUnsupported []string      `json:"skipped_unsupported,omitempty"`
	SkippedCheckpoint  int           `json:"skipped_checkpoint"`
	SkippedFolders     int           `json:"skipped_folders"`
	Projects           int           `json:"projects"`
	ResourcesWritten   int           `json:"resources_written"`
	PagesFetched       int           `json:"pages_fetched"`
	Epoch              uint64        `json:"epoch"`
	StartedAt          time.Time     `json:"started_at"`
	Duration           time.Duration `json:"duration"`
}

// OK reports whether every scheduled work item completed
func (s RunSummary) OK() bool {
	return len(s.Failed) == 0
}
