// Package sink writes extracted resources into a directory tree derived
// from the scope hierarchy:
//
//	<root>/<scope path...>/<service tag>/<type plural>/<resource ID>.<ext>
//
// Writes are idempotent; re-extracting a resource overwrites its file.
package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yairfalse/kartta/types"
)

// Format selects the on-disk encoding
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FS writes records under a root directory
type FS struct {
	root   string
	format Format
}

// NewFS creates a filesystem sink rooted at root
func NewFS(root string, format Format) (*FS, error) {
	switch format {
	case FormatYAML, FormatJSON:
	case "":
		format = FormatYAML
	default:
		return nil, fmt.Errorf("unsupported sink format %q", format)
	}

	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output root: %w", err)
	}

	return &FS{root: root, format: format}, nil
}

// Path returns where a record lands under the root
func (s *FS) Path(record types.ResourceRecord) string {
	parts := make([]string, 0, len(record.ScopePath)+3)
	parts = append(parts, s.root)
	for _, segment := range record.ScopePath {
		parts = append(parts, sanitizeSegment(segment))
	}
	parts = append(parts,
		sanitizeSegment(record.ServiceTag),
		sanitizeSegment(record.TypePlural),
		sanitizeSegment(record.ID)+"."+s.ext(),
	)
	return filepath.Join(parts...)
}

// Write persists one record, creating directories on demand. The write
// goes to a temp file first and is renamed into place, so concurrent
// re-writes of the same resource never leave a torn file.
func (s *FS) Write(record types.ResourceRecord) error {
	path := s.Path(record)
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0750); err != nil {
		return types.NewError(types.ErrFatal, "sink.write", fmt.Errorf("failed to create %s: %w", dir, err))
	}

	data, err := s.encode(record)
	if err != nil {
		return types.NewError(types.ErrFatal, "sink.write", fmt.Errorf("failed to encode %s: %w", record.ID, err))
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return types.NewError(types.ErrFatal, "sink.write", fmt.Errorf("failed to create temp file: %w", err))
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return types.NewError(types.ErrFatal, "sink.write", fmt.Errorf("failed to write %s: %w", path, err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return types.NewError(types.ErrFatal, "sink.write", fmt.Errorf("failed to close temp file: %w", err))
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return types.NewError(types.ErrFatal, "sink.write", fmt.Errorf("failed to place %s: %w", path, err))
	}
	return nil
}

func (s *FS) ext() string {
	if s.format == FormatJSON {
		return "json"
	}
	return "yaml"
}

func (s *FS) encode(record types.ResourceRecord) ([]byte, error) {
	if s.format == FormatJSON {
		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return yaml.Marshal(record)
}

// sanitizeSegment maps path separators and other unsafe runes to '_' so
// real-world resource IDs (ARNs, zone IDs, URLs) become stable filenames.
func sanitizeSegment(segment string) string {
	if segment == "" {
		return "_"
	}

	var b strings.Builder
	b.Grow(len(segment))
	for _, r := range segment {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteRune('_')
		case r < 0x20 || r == 0x7f:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	out := b.String()
	// "." and ".." would escape or vanish as path elements
	if out == "." || out == ".." {
		return strings.ReplaceAll(out, ".", "_")
	}
	return out
}
