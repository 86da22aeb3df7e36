// Package walker discovers projects by walking the scope hierarchy
// breadth-first: organization, then folders level by level, collecting
// projects as they appear.
package walker

import (
	"context"

	"github.com/yairfalse/kartta/fetch"
	"github.com/yairfalse/kartta/internal/filter"
	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/retry"
	"github.com/yairfalse/kartta/telemetry"
	"github.com/yairfalse/kartta/throttle"
	"github.com/yairfalse/kartta/types"
)

// ResourceManagerTag is the reserved service tag under which hierarchy
// calls are throttled, keeping them on their own bucket.
const ResourceManagerTag = "resourcemanager"

// Stats summarizes one walk
type Stats struct {
	Projects       int
	FoldersVisited int
	SkippedFolders int
}

// Walker traverses the hierarchy of one provider
type Walker struct {
	client   providers.Client
	policy   *retry.Policy
	throttle *throttle.Throttle
	filter   *filter.Filter
	logger   *telemetry.Logger
	onSkip   func(types.ScopeNode, error)
}

// New creates a walker. filter may be nil to include every project.
func New(client providers.Client, policy *retry.Policy, th *throttle.Throttle, f *filter.Filter) *Walker {
	return &Walker{
		client:   client,
		policy:   policy,
		throttle: th,
		filter:   f,
		logger:   telemetry.NewLogger("walker"),
	}
}

// WithSkipHandler sets a hook invoked once per skipped folder subtree,
// with the folder and the error that caused the skip.
func (w *Walker) WithSkipHandler(fn func(types.ScopeNode, error)) *Walker {
	w.onSkip = fn
	return w
}

// Walk visits every admitted project under root, breadth-first. Listing
// failures at the root abort the walk; folders that cannot be read
// (permission denied, or deleted mid-walk) are skipped with their whole
// subtree. A non-nil error from visit aborts immediately.
func (w *Walker) Walk(ctx context.Context, root types.ScopeNode, visit func(types.ScopeNode) error) (Stats, error) {
	stats := Stats{}

	if root.Kind == types.KindProject {
		// A project root has no children to walk
		if w.admit(root) {
			stats.Projects++
			if err := visit(root); err != nil {
				return stats, err
			}
		}
		return stats, nil
	}

	queue := []types.ScopeNode{root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		atRoot := node.ID == root.ID

		if err := w.visitProjects(ctx, node, &stats, visit); err != nil {
			if !atRoot && skippable(err) {
				w.skipSubtree(ctx, node, &stats, err)
				continue
			}
			return stats, err
		}

		children, err := w.listFolders(ctx, node)
		if err != nil {
			if !atRoot && skippable(err) {
				w.skipSubtree(ctx, node, &stats, err)
				continue
			}
			return stats, err
		}

		if !atRoot {
			stats.FoldersVisited++
		}
		queue = append(queue, children...)
	}

	return stats, nil
}

// visitProjects drains one node's project pages into visit
func (w *Walker) visitProjects(ctx context.Context, parent types.ScopeNode, stats *Stats, visit func(types.ScopeNode) error) error {
	fetcher := w.fetcher(ctx, "walk.projects", func(ctx context.Context, pageToken string) ([]types.ScopeNode, string, error) {
		return w.client.ListProjects(ctx, parent, pageToken)
	})

	_, err := fetcher.Each(ctx, func(project types.ScopeNode) error {
		if !w.admit(project) {
			return nil
		}
		project.Path = parent.ChildPath(project.ID)
		stats.Projects++
		return visit(project)
	})
	return err
}

// listFolders drains one node's folder pages
func (w *Walker) listFolders(ctx context.Context, parent types.ScopeNode) ([]types.ScopeNode, error) {
	fetcher := w.fetcher(ctx, "walk.folders", func(ctx context.Context, pageToken string) ([]types.ScopeNode, string, error) {
		return w.client.ListFolders(ctx, parent, pageToken)
	})

	var children []types.ScopeNode
	_, err := fetcher.Each(ctx, func(folder types.ScopeNode) error {
		folder.Path = parent.ChildPath(folder.ID)
		children = append(children, folder)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return children, nil
}

func (w *Walker) fetcher(ctx context.Context, op string, fn fetch.PageFunc[types.ScopeNode]) *fetch.Fetcher[types.ScopeNode] {
	return fetch.New(op, fn).
		WithRetry(w.policy).
		WithGate(func(ctx context.Context) error {
			return w.throttle.Acquire(ctx, ResourceManagerTag)
		}).
		WithRateLimitNotify(func() {
			newRate := w.throttle.OnRateLimited(ResourceManagerTag)
			w.logger.LogRateLimitSignal(ctx, ResourceManagerTag, newRate)
			telemetry.RecordRateLimitSignal(ctx, ResourceManagerTag, newRate)
		})
}

func (w *Walker) admit(project types.ScopeNode) bool {
	return w.filter == nil || w.filter.ShouldInclude(project)
}

func (w *Walker) skipSubtree(ctx context.Context, node types.ScopeNode, stats *Stats, err error) {
	stats.SkippedFolders++
	w.logger.LogFolderSkipped(ctx, node.ID, err)
	if w.onSkip != nil {
		w.onSkip(node, err)
	}
}

// skippable reports whether a folder's listing failure should drop the
// subtree instead of aborting the walk. Folders deleted between paging
// calls surface as not_found.
func skippable(err error) bool {
	kind := types.KindOf(err)
	return kind == types.ErrPermissionDenied || kind == types.ErrNotFound
}
