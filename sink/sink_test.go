package sink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/yairfalse/kartta/types"
)

func record(id string) types.ResourceRecord {
	return types.ResourceRecord{
		ServiceTag: "compute",
		Type:       "instance",
		TypePlural: "instances",
		ID:         id,
		Name:       "web",
		ProjectID:  "prod-app",
		ScopePath:  []string{"org-1", "folder-2", "prod-app"},
		Payload:    map[string]any{"zone": "us-east1-b", "cpus": 4},
	}
}

func TestWrite_PathLayout(t *testing.T) {
	root := t.TempDir()
	s, err := NewFS(root, FormatYAML)
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}

	rec := record("i-123")
	if err := s.Write(rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	want := filepath.Join(root, "org-1", "folder-2", "prod-app", "compute", "instances", "i-123.yaml")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected file at %s: %v", want, err)
	}
}

func TestWrite_YAMLRoundTrip(t *testing.T) {
	root := t.TempDir()
	s, _ := NewFS(root, FormatYAML)

	rec := record("i-123")
	if err := s.Write(rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(s.Path(rec))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	var got types.ResourceRecord
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.ID != "i-123" || got.ServiceTag != "compute" {
		t.Errorf("round trip lost identity: %+v", got)
	}
	if got.Payload["zone"] != "us-east1-b" {
		t.Errorf("payload zone = %v", got.Payload["zone"])
	}
}

func TestWrite_JSONFormat(t *testing.T) {
	root := t.TempDir()
	s, err := NewFS(root, FormatJSON)
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}

	rec := record("i-456")
	if err := s.Write(rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	path := s.Path(rec)
	if !strings.HasSuffix(path, "i-456.json") {
		t.Errorf("path = %s, want .json extension", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var got types.ResourceRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.ID != "i-456" {
		t.Errorf("ID = %q", got.ID)
	}
}

func TestWrite_Idempotent(t *testing.T) {
	root := t.TempDir()
	s, _ := NewFS(root, FormatYAML)

	rec := record("i-123")
	if err := s.Write(rec); err != nil {
		t.Fatalf("first Write failed: %v", err)
	}

	rec.Payload["cpus"] = 8
	if err := s.Write(rec); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}

	dir := filepath.Dir(s.Path(rec))
	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected exactly 1 file after rewrite, got %d", len(files))
	}

	data, _ := os.ReadFile(s.Path(rec))
	var got types.ResourceRecord
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Payload["cpus"] != 8 {
		t.Errorf("cpus = %v, want updated value 8", got.Payload["cpus"])
	}
}

func TestWrite_SanitizesUnsafeIDs(t *testing.T) {
	root := t.TempDir()
	s, _ := NewFS(root, FormatYAML)

	rec := record("arn:aws:ecs:us-east-1:123:cluster/prod")
	rec.ScopePath = []string{"org-1", "data/analytics"}

	if err := s.Write(rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	path := s.Path(rec)
	rel, err := filepath.Rel(root, path)
	if err != nil {
		t.Fatalf("Rel failed: %v", err)
	}
	if strings.Contains(rel, ":") {
		t.Errorf("path %q still contains ':'", rel)
	}
	if got := strings.Count(rel, string(filepath.Separator)); got != 4 {
		t.Errorf("path depth = %d separators, want 4 (segments must not split)", got)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("sanitized file missing: %v", err)
	}
}

func TestWrite_DotSegments(t *testing.T) {
	if sanitizeSegment("..") != "__" {
		t.Errorf("'..' = %q", sanitizeSegment(".."))
	}
	if sanitizeSegment(".") != "_" {
		t.Errorf("'.' = %q", sanitizeSegment("."))
	}
	if sanitizeSegment("") != "_" {
		t.Errorf("empty = %q", sanitizeSegment(""))
	}
	if got := sanitizeSegment("a.b"); got != "a.b" {
		t.Errorf("inner dots must survive, got %q", got)
	}
}

func TestNewFS_RejectsUnknownFormat(t *testing.T) {
	if _, err := NewFS(t.TempDir(), Format("xml")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewFS_DefaultsToYAML(t *testing.T) {
	s, err := NewFS(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}
	if s.ext() != "yaml" {
		t.Errorf("ext = %s, want yaml", s.ext())
	}
}

func TestWrite_ConcurrentDistinctRecords(t *testing.T) {
	root := t.TempDir()
	s, _ := NewFS(root, FormatYAML)

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := record("i-" + strings.Repeat("0", 2) + string(rune('a'+i)))
			errs <- s.Write(rec)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Write failed: %v", err)
		}
	}

	dir := filepath.Join(root, "org-1", "folder-2", "prod-app", "compute", "instances")
	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(files) != n {
		t.Errorf("expected %d files, got %d", n, len(files))
	}
}
