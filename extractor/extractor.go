// Package extractor maps service tags to extraction capabilities and
// provides the generic listing extractor built on the provider client.
package extractor

import (
	"context"
	"sort"
	"sync"

	"github.com/yairfalse/kartta/types"
)

// Extractor drives the full extraction of one work item, handing each
// record to emit as it is produced. Returns the number of pages fetched.
// A non-nil error from emit aborts the item with that error.
type Extractor interface {
	Extract(ctx context.Context, item types.WorkItem, emit func(types.ResourceRecord) error) (int, error)
}

// Registry maps service tags to extractors. Tags without a registered
// extractor are unsupported; callers skip them and report the tag.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
}

// NewRegistry creates an empty extractor registry
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// Register binds an extractor to a service tag
func (r *Registry) Register(serviceTag string, e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[serviceTag] = e
}

// Lookup returns the extractor for a tag, reporting whether one exists
func (r *Registry) Lookup(serviceTag string) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[serviceTag]
	return e, ok
}

// Tags returns the registered service tags in sorted order
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.extractors))
	for tag := range r.extractors {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
