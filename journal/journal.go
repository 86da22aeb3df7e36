// Package journal provides an append-only JSONL record of extraction runs
// for audit and postmortem replay.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EntryType defines the type of journal entry
type EntryType string

const (
	EntryRunStarted    EntryType = "run_started"
	EntryItemCompleted EntryType = "item_completed"
	EntryItemFailed    EntryType = "item_failed"
	EntryItemSkipped   EntryType = "item_skipped"
	EntryFolderSkipped EntryType = "folder_skipped"
	EntryRunCompleted  EntryType = "run_completed"
)

// Entry represents a single journal entry
type Entry struct {
	Timestamp time.Time       `json:"timestamp"`
	Sequence  int64           `json:"sequence"`
	Type      EntryType       `json:"type"`
	ItemKey   string          `json:"item_key,omitempty"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error,omitempty"`
}

// Config controls journal file naming, rotation and retention
type Config struct {
	Dir           string
	FilePrefix    string
	MaxFileSize   int64
	RetentionDays int
}

// DefaultConfig returns the standard journal configuration for a directory
func DefaultConfig(dir string) Config {
	return Config{
		Dir:           dir,
		FilePrefix:    "kartta",
		MaxFileSize:   64 * 1024 * 1024,
		RetentionDays: 30,
	}
}

// Journal appends run events to timestamped JSONL files
type Journal struct {
	mu       sync.Mutex
	file     *os.File
	writer   *bufio.Writer
	sequence int64
	config   Config
}

// Open creates or opens a journal in the configured directory
func Open(config Config) (*Journal, error) {
	if config.FilePrefix == "" {
		config.FilePrefix = "kartta"
	}
	if err := os.MkdirAll(config.Dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	j := &Journal{config: config}
	if err := j.openFile(); err != nil {
		return nil, err
	}

	j.sequence = findLastSequenceInFiles(j.listFiles())
	return j, nil
}

// openFile starts a fresh timestamped journal file
func (j *Journal) openFile() error {
	filename := fmt.Sprintf("%s-%s.journal", j.config.FilePrefix, time.Now().Format("20060102-150405.000000000"))
	path := filepath.Join(j.config.Dir, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644) // #nosec G302 G304 -- journal path derives from config
	if err != nil {
		return fmt.Errorf("failed to open journal file: %w", err)
	}

	j.file = file
	j.writer = bufio.NewWriter(file)
	return nil
}

// Close flushes and closes the journal
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Flush(); err != nil {
		return err
	}
	return j.file.Close()
}

// Append adds an entry to the journal
func (j *Journal) Append(entryType EntryType, itemKey string, data interface{}) error {
	return j.append(entryType, itemKey, data, nil)
}

// AppendError adds an entry carrying a failure cause
func (j *Journal) AppendError(entryType EntryType, itemKey string, data interface{}, cause error) error {
	return j.append(entryType, itemKey, data, cause)
}

func (j *Journal) append(entryType EntryType, itemKey string, data interface{}, cause error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.sequence++

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	entry := Entry{
		Timestamp: time.Now(),
		Sequence:  j.sequence,
		Type:      entryType,
		ItemKey:   itemKey,
		Data:      jsonData,
	}
	if cause != nil {
		entry.Error = cause.Error()
	}

	return j.writeEntry(entry)
}

// writeEntry writes a single entry, flushed and synced for durability
func (j *Journal) writeEntry(entry Entry) error {
	if j.shouldRotate() {
		if err := j.rotate(); err != nil {
			return err
		}
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	if _, err := j.writer.Write(line); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	if _, err := j.writer.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := j.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return j.file.Sync()
}

// shouldRotate reports whether the current file exceeds the size cap
func (j *Journal) shouldRotate() bool {
	if j.config.MaxFileSize <= 0 {
		return false
	}
	info, err := j.file.Stat()
	if err != nil {
		return false
	}
	return info.Size() >= j.config.MaxFileSize
}

// rotate closes the current file and starts a fresh one
func (j *Journal) rotate() error {
	if err := j.writer.Flush(); err != nil {
		return err
	}
	if err := j.file.Close(); err != nil {
		return err
	}
	return j.openFile()
}

// listFiles returns every journal file under the configured directory
func (j *Journal) listFiles() []string {
	return findAllJournalFiles(j.config.Dir, j.config.FilePrefix)
}

// Reader provides journal replay functionality
type Reader struct {
	scanner *bufio.Scanner
	file    *os.File
}

// NewReader creates a journal reader for the specified file
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path) // #nosec G304 -- replay path comes from the journal directory listing
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	return &Reader{
		scanner: bufio.NewScanner(file),
		file:    file,
	}, nil
}

// Next reads the next entry from the journal
func (r *Reader) Next() (*Entry, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	var entry Entry
	if err := json.Unmarshal(r.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &entry, nil
}

// Close closes the reader
func (r *Reader) Close() error {
	return r.file.Close()
}

// Replay replays journal entries recorded after a specific time
func Replay(config Config, since time.Time, handler func(*Entry) error) error {
	if config.FilePrefix == "" {
		config.FilePrefix = "kartta"
	}
	for _, file := range findAllJournalFiles(config.Dir, config.FilePrefix) {
		if err := replayFile(file, since, handler); err != nil {
			return err
		}
	}
	return nil
}

func replayFile(path string, since time.Time, handler func(*Entry) error) error {
	reader, err := NewReader(path)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	for {
		entry, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if entry.Timestamp.After(since) {
			if err := handler(entry); err != nil {
				return err
			}
		}
	}
}

// findAllJournalFiles returns all journal files in directory, oldest first
func findAllJournalFiles(dir, prefix string) []string {
	pattern := filepath.Join(dir, prefix+"-*.journal")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil
	}
	return files
}

// findLastSequenceInFiles finds the highest sequence across files
func findLastSequenceInFiles(files []string) int64 {
	maxSeq := int64(0)
	for _, file := range files {
		if fileMax := maxSequenceInFile(file); fileMax > maxSeq {
			maxSeq = fileMax
		}
	}
	return maxSeq
}

// maxSequenceInFile reads a file and returns its max sequence, skipping
// corrupted lines.
func maxSequenceInFile(path string) int64 {
	file, err := os.Open(path) // #nosec G304 -- path comes from the journal directory listing
	if err != nil {
		return 0
	}
	defer func() { _ = file.Close() }()

	maxSeq := int64(0)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if entry.Sequence > maxSeq {
			maxSeq = entry.Sequence
		}
	}
	return maxSeq
}
