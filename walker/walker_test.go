package walker

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/kartta/internal/filter"
	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/retry"
	"github.com/yairfalse/kartta/throttle"
	"github.com/yairfalse/kartta/types"
)

type fakeHierarchy struct {
	folders    map[string][]types.ScopeNode
	projects   map[string][]types.ScopeNode
	folderErr  map[string]error
	projectErr map[string]error
	pageSize   int

	folderCalls  int
	projectCalls int
}

func (f *fakeHierarchy) Name() string { return "fake" }

func (f *fakeHierarchy) ResolveScope(ctx context.Context, scope string) (types.ScopeNode, error) {
	return types.ScopeNode{Kind: types.KindOrganization, ID: scope, Path: []string{scope}}, nil
}

func (f *fakeHierarchy) ListFolders(ctx context.Context, parent types.ScopeNode, pageToken string) ([]types.ScopeNode, string, error) {
	f.folderCalls++
	if err := f.folderErr[parent.ID]; err != nil {
		return nil, "", err
	}
	return f.page(f.folders[parent.ID], pageToken)
}

func (f *fakeHierarchy) ListProjects(ctx context.Context, parent types.ScopeNode, pageToken string) ([]types.ScopeNode, string, error) {
	f.projectCalls++
	if err := f.projectErr[parent.ID]; err != nil {
		return nil, "", err
	}
	return f.page(f.projects[parent.ID], pageToken)
}

func (f *fakeHierarchy) ListResources(ctx context.Context, projectID, serviceTag, pageToken string) ([]types.ResourceRef, string, error) {
	return nil, "", nil
}

func (f *fakeHierarchy) GetResource(ctx context.Context, ref types.ResourceRef) (map[string]any, error) {
	return nil, nil
}

func (f *fakeHierarchy) Services() []providers.ServiceInfo {
	return []providers.ServiceInfo{{Tag: "compute", Description: "test"}}
}

// page slices nodes into fixed-size pages addressed by numeric tokens
func (f *fakeHierarchy) page(nodes []types.ScopeNode, token string) ([]types.ScopeNode, string, error) {
	if f.pageSize <= 0 {
		return nodes, "", nil
	}
	start := 0
	if token != "" {
		var err error
		start, err = strconv.Atoi(token)
		if err != nil {
			return nil, "", err
		}
	}
	end := start + f.pageSize
	if end >= len(nodes) {
		return nodes[start:], "", nil
	}
	return nodes[start:end], strconv.Itoa(end), nil
}

func org(id string) types.ScopeNode {
	return types.ScopeNode{Kind: types.KindOrganization, ID: id, Path: []string{id}}
}

func folderNode(id string) types.ScopeNode {
	return types.ScopeNode{Kind: types.KindFolder, ID: id}
}

func projectNode(id string) types.ScopeNode {
	return types.ScopeNode{Kind: types.KindProject, ID: id}
}

func fastPolicy() *retry.Policy {
	return &retry.Policy{MaxAttempts: 3, InitialDelay: 1, MaxDelay: 5, Multiplier: 2.0}
}

func openThrottle() *throttle.Throttle {
	return throttle.New(throttle.Options{
		DefaultRate:  1000,
		DefaultBurst: 1000,
		MinRate:      1,
		DecreaseStep: 2,
		RecoveryStep: 1,
		CoolDown:     0,
	}, nil)
}

// testTree builds: org-1 holds p-root plus folders f-a and f-b;
// f-a holds p-a and the nested folder f-a-x, which holds p-x;
// f-b holds p-b.
func testTree() *fakeHierarchy {
	return &fakeHierarchy{
		folders: map[string][]types.ScopeNode{
			"org-1": {folderNode("f-a"), folderNode("f-b")},
			"f-a":   {folderNode("f-a-x")},
		},
		projects: map[string][]types.ScopeNode{
			"org-1": {projectNode("p-root")},
			"f-a":   {projectNode("p-a")},
			"f-b":   {projectNode("p-b")},
			"f-a-x": {projectNode("p-x")},
		},
	}
}

func collect(t *testing.T, w *Walker, root types.ScopeNode) ([]types.ScopeNode, Stats, error) {
	t.Helper()
	var visited []types.ScopeNode
	stats, err := w.Walk(context.Background(), root, func(p types.ScopeNode) error {
		visited = append(visited, p)
		return nil
	})
	return visited, stats, err
}

func visitedIDs(nodes []types.ScopeNode) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestWalk_VisitsProjectsBreadthFirst(t *testing.T) {
	client := testTree()
	w := New(client, fastPolicy(), openThrottle(), nil)

	visited, stats, err := collect(t, w, org("org-1"))

	require.NoError(t, err)
	assert.Equal(t, []string{"p-root", "p-a", "p-b", "p-x"}, visitedIDs(visited),
		"projects surface level by level, parents before descendants")
	assert.Equal(t, 4, stats.Projects)
	assert.Equal(t, 3, stats.FoldersVisited)
	assert.Equal(t, 0, stats.SkippedFolders)
}

func TestWalk_StampsHierarchyPaths(t *testing.T) {
	client := testTree()
	w := New(client, fastPolicy(), openThrottle(), nil)

	visited, _, err := collect(t, w, org("org-1"))

	require.NoError(t, err)
	byID := make(map[string]types.ScopeNode)
	for _, p := range visited {
		byID[p.ID] = p
	}
	assert.Equal(t, []string{"org-1", "p-root"}, byID["p-root"].Path)
	assert.Equal(t, []string{"org-1", "f-a", "p-a"}, byID["p-a"].Path)
	assert.Equal(t, []string{"org-1", "f-a", "f-a-x", "p-x"}, byID["p-x"].Path)
}

func TestWalk_DeniedFolderSkipsSubtree(t *testing.T) {
	client := testTree()
	client.projectErr = map[string]error{
		"f-a": types.NewError(types.ErrPermissionDenied, "fake.list_projects", errors.New("denied")),
	}
	var skipped []string
	w := New(client, fastPolicy(), openThrottle(), nil).
		WithSkipHandler(func(node types.ScopeNode, cause error) {
			skipped = append(skipped, node.ID)
			assert.Equal(t, types.ErrPermissionDenied, types.KindOf(cause))
		})

	visited, stats, err := collect(t, w, org("org-1"))

	require.NoError(t, err, "a denied folder must not fail the walk")
	assert.Equal(t, []string{"p-root", "p-b"}, visitedIDs(visited),
		"nothing under f-a is visited, including the nested f-a-x")
	assert.Equal(t, 1, stats.SkippedFolders)
	assert.Equal(t, 2, stats.Projects)
	assert.Equal(t, []string{"f-a"}, skipped)
}

func TestWalk_DeletedFolderSkipsSubtree(t *testing.T) {
	client := testTree()
	client.folderErr = map[string]error{
		"f-b": types.NewError(types.ErrNotFound, "fake.list_folders", errors.New("gone")),
	}
	w := New(client, fastPolicy(), openThrottle(), nil)

	visited, stats, err := collect(t, w, org("org-1"))

	require.NoError(t, err)
	assert.Equal(t, []string{"p-root", "p-a", "p-b", "p-x"}, visitedIDs(visited),
		"f-b's own projects listed before its folder listing failed")
	assert.Equal(t, 1, stats.SkippedFolders)
}

func TestWalk_RootListingFailureIsFatal(t *testing.T) {
	client := testTree()
	client.projectErr = map[string]error{
		"org-1": types.NewError(types.ErrPermissionDenied, "fake.list_projects", errors.New("denied")),
	}
	w := New(client, fastPolicy(), openThrottle(), nil)

	visited, _, err := collect(t, w, org("org-1"))

	require.Error(t, err, "a denied root is a configuration problem, not a skippable folder")
	assert.Equal(t, types.ErrPermissionDenied, types.KindOf(err))
	assert.Empty(t, visited)
}

func TestWalk_OtherFolderErrorsAbort(t *testing.T) {
	client := testTree()
	client.projectErr = map[string]error{
		"f-b": types.NewError(types.ErrFatal, "fake.list_projects", errors.New("bad request")),
	}
	w := New(client, fastPolicy(), openThrottle(), nil)

	_, _, err := collect(t, w, org("org-1"))

	require.Error(t, err)
	assert.Equal(t, types.ErrFatal, types.KindOf(err))
}

func TestWalk_FilterExcludesProjects(t *testing.T) {
	client := testTree()
	f := filter.New(nil, []string{"p-b"}, nil, nil)
	w := New(client, fastPolicy(), openThrottle(), f)

	visited, stats, err := collect(t, w, org("org-1"))

	require.NoError(t, err)
	assert.Equal(t, []string{"p-root", "p-a", "p-x"}, visitedIDs(visited))
	assert.Equal(t, 3, stats.Projects, "excluded projects are not counted")
}

func TestWalk_VisitErrorAborts(t *testing.T) {
	client := testTree()
	w := New(client, fastPolicy(), openThrottle(), nil)

	boom := errors.New("queue closed")
	seen := 0
	_, err := w.Walk(context.Background(), org("org-1"), func(p types.ScopeNode) error {
		seen++
		if p.ID == "p-a" {
			return boom
		}
		return nil
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, seen, "walk stops at the failing visit")
}

func TestWalk_ProjectRootVisitsOnlyItself(t *testing.T) {
	client := testTree()
	w := New(client, fastPolicy(), openThrottle(), nil)

	root := types.ScopeNode{Kind: types.KindProject, ID: "solo", Path: []string{"solo"}}
	visited, stats, err := collect(t, w, root)

	require.NoError(t, err)
	assert.Equal(t, []string{"solo"}, visitedIDs(visited))
	assert.Equal(t, []string{"solo"}, visited[0].Path)
	assert.Equal(t, 1, stats.Projects)
	assert.Zero(t, client.projectCalls, "a project root needs no hierarchy calls")
	assert.Zero(t, client.folderCalls)
}

func TestWalk_DrainsPagedListings(t *testing.T) {
	client := &fakeHierarchy{
		pageSize: 1,
		folders: map[string][]types.ScopeNode{
			"org-1": {folderNode("f-a"), folderNode("f-b")},
		},
		projects: map[string][]types.ScopeNode{
			"org-1": {projectNode("p-1"), projectNode("p-2"), projectNode("p-3")},
		},
	}
	w := New(client, fastPolicy(), openThrottle(), nil)

	visited, stats, err := collect(t, w, org("org-1"))

	require.NoError(t, err)
	assert.Equal(t, []string{"p-1", "p-2", "p-3"}, visitedIDs(visited))
	assert.Equal(t, 2, stats.FoldersVisited)
}

func TestWalk_TransientListingErrorsAreRetried(t *testing.T) {
	flaky := &flakyHierarchy{fakeHierarchy: testTree(), failFirst: 1}
	w := New(flaky, fastPolicy(), openThrottle(), nil)

	visited, _, err := collect(t, w, org("org-1"))

	require.NoError(t, err, "one transient failure is absorbed by the retry policy")
	assert.Equal(t, []string{"p-root", "p-a", "p-b", "p-x"}, visitedIDs(visited))
}

// flakyHierarchy fails the first N project listing calls with a
// transient error, then behaves normally.
type flakyHierarchy struct {
	*fakeHierarchy
	failFirst int
}

func (f *flakyHierarchy) ListProjects(ctx context.Context, parent types.ScopeNode, pageToken string) ([]types.ScopeNode, string, error) {
	if f.failFirst > 0 {
		f.failFirst--
		return nil, "", types.NewError(types.ErrTransient, "fake.list_projects", errors.New("flap"))
	}
	return f.fakeHierarchy.ListProjects(ctx, parent, pageToken)
}
