package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yairfalse/kartta/types"
)

func TestRenderSummaryAllCompleted(t *testing.T) {
	summary := types.RunSummary{
		Completed:        4,
		Projects:         2,
		ResourcesWritten: 12,
		PagesFetched:     6,
		Epoch:            1,
		Duration:         1500 * time.Millisecond,
	}

	var buf bytes.Buffer
	renderSummary(&buf, summary)

	out := buf.String()
	assert.Contains(t, out, "Projects walked:   2")
	assert.Contains(t, out, "Items completed:   4")
	assert.Contains(t, out, "All work items completed.")
	assert.NotContains(t, out, "--resume")
}

func TestRenderSummaryFailedTable(t *testing.T) {
	summary := types.RunSummary{
		Completed: 1,
		Failed: []types.FailedItem{
			{
				Item: types.WorkItem{Project: types.ScopeNode{ID: "p-1"}, ServiceTag: "compute"},
				Err:  types.NewError(types.ErrRetryExhausted, "list instances", errors.New("quota exceeded")),
			},
		},
	}

	var buf bytes.Buffer
	renderSummary(&buf, summary)

	out := buf.String()
	assert.Contains(t, out, "Failed Items:")
	assert.Contains(t, out, "p-1")
	assert.Contains(t, out, "compute")
	assert.Contains(t, out, "retry_exhausted")
	assert.Contains(t, out, "--resume")
}

func TestRenderSummarySkippedCounts(t *testing.T) {
	summary := types.RunSummary{
		Completed:          3,
		SkippedCheckpoint:  2,
		SkippedFolders:     1,
		SkippedUnsupported: []string{"quantum"},
	}

	var buf bytes.Buffer
	renderSummary(&buf, summary)

	out := buf.String()
	assert.Contains(t, out, "Skipped (already done): 2")
	assert.Contains(t, out, "Skipped folders (denied): 1")
	assert.Contains(t, out, "Unsupported services: quantum")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "this is...", truncate("this is too long", 10))
}

func TestResolveConfigPath(t *testing.T) {
	assert.Equal(t, "explicit.yaml", resolveConfigPath("explicit.yaml"))

	t.Setenv("KARTTA_CONFIG", "from-env.yaml")
	assert.Equal(t, "from-env.yaml", resolveConfigPath(""))

	t.Setenv("KARTTA_CONFIG", "")
	assert.Equal(t, "kartta.yaml", resolveConfigPath(""))
}
