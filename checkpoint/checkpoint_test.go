package checkpoint

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/yairfalse/kartta/types"
)

func item(projectID, serviceTag string) types.WorkItem {
	return types.WorkItem{
		Project:    types.ScopeNode{Kind: types.KindProject, ID: projectID},
		ServiceTag: serviceTag,
	}
}

func TestOpen_FreshStoreStartsAtEpochOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "checkpoint.db")

	store, err := Open(path, true)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if store.Epoch() != 1 {
		t.Errorf("Epoch = %d, want 1", store.Epoch())
	}
	if store.CompletedCount() != 0 {
		t.Errorf("CompletedCount = %d, want 0", store.CompletedCount())
	}
}

func TestMarkComplete_IsComplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")
	store, err := Open(path, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	done := item("prod-app", "compute")
	if store.IsComplete(done) {
		t.Error("item complete before marking")
	}

	if err := store.MarkComplete(done); err != nil {
		t.Fatalf("MarkComplete failed: %v", err)
	}

	if !store.IsComplete(done) {
		t.Error("item not complete after marking")
	}
	if store.IsComplete(item("prod-app", "storage")) {
		t.Error("different service tag reported complete")
	}
	if store.IsComplete(item("dev-app", "compute")) {
		t.Error("different project reported complete")
	}
}

func TestResume_KeepsEpochAndMarks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")

	store, err := Open(path, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	epoch := store.Epoch()

	if err := store.MarkComplete(item("prod-app", "compute")); err != nil {
		t.Fatalf("MarkComplete failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(path, true)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	if reopened.Epoch() != epoch {
		t.Errorf("Epoch = %d, want %d", reopened.Epoch(), epoch)
	}
	if !reopened.IsComplete(item("prod-app", "compute")) {
		t.Error("mark lost across reopen")
	}
	if reopened.CompletedCount() != 1 {
		t.Errorf("CompletedCount = %d, want 1", reopened.CompletedCount())
	}
}

func TestFreshRun_AdvancesEpochAndOrphansMarks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")

	store, err := Open(path, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	epoch := store.Epoch()
	if err := store.MarkComplete(item("prod-app", "compute")); err != nil {
		t.Fatalf("MarkComplete failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	fresh, err := Open(path, false)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = fresh.Close() }()

	if fresh.Epoch() != epoch+1 {
		t.Errorf("Epoch = %d, want %d", fresh.Epoch(), epoch+1)
	}
	if fresh.IsComplete(item("prod-app", "compute")) {
		t.Error("old-epoch mark visible in new epoch")
	}
	if fresh.CompletedCount() != 0 {
		t.Errorf("CompletedCount = %d, want 0", fresh.CompletedCount())
	}
}

func TestClear_DropsCurrentEpoch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")
	store, err := Open(path, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.MarkComplete(item("prod-app", "compute")); err != nil {
		t.Fatalf("MarkComplete failed: %v", err)
	}
	if err := store.MarkComplete(item("prod-app", "storage")); err != nil {
		t.Fatalf("MarkComplete failed: %v", err)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if store.CompletedCount() != 0 {
		t.Errorf("CompletedCount = %d, want 0", store.CompletedCount())
	}
	if store.IsComplete(item("prod-app", "compute")) {
		t.Error("mark survived Clear")
	}
}

func TestItems_Sorted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")
	store, err := Open(path, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	for _, it := range []types.WorkItem{
		item("zeta", "compute"),
		item("alpha", "storage"),
		item("alpha", "compute"),
	} {
		if err := store.MarkComplete(it); err != nil {
			t.Fatalf("MarkComplete failed: %v", err)
		}
	}

	got := store.Items()
	want := []string{"alpha:compute", "alpha:storage", "zeta:compute"}
	if len(got) != len(want) {
		t.Fatalf("Items = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Items[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMarkComplete_Concurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")
	store, err := Open(path, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.MarkComplete(item(fmt.Sprintf("project-%02d", i), "compute"))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("MarkComplete failed: %v", err)
		}
	}
	if store.CompletedCount() != n {
		t.Errorf("CompletedCount = %d, want %d", store.CompletedCount(), n)
	}
}
