package journal

import (
	"fmt"
	"os"
	"time"
)

// Cleanup removes journal files older than the retention period
func Cleanup(config Config) error {
	return removeFiles(listOldJournalFiles(config))
}

// CleanupStats tracks cleanup operation results
type CleanupStats struct {
	FilesRemoved int
	BytesFreed   int64
}

// CleanupWithStats removes old files and returns statistics
func CleanupWithStats(config Config) (CleanupStats, error) {
	stats := CleanupStats{}
	files := listOldJournalFiles(config)
	if len(files) == 0 {
		return stats, nil
	}

	stats.FilesRemoved = len(files)
	stats.BytesFreed = calculateTotalSize(files)

	err := removeFiles(files)
	return stats, err
}

// listOldJournalFiles finds journal files older than the retention period
func listOldJournalFiles(config Config) []string {
	if config.RetentionDays <= 0 {
		return nil
	}
	if config.FilePrefix == "" {
		config.FilePrefix = "kartta"
	}
	cutoff := time.Now().AddDate(0, 0, -config.RetentionDays)
	return filterOldFiles(findAllJournalFiles(config.Dir, config.FilePrefix), cutoff)
}

// filterOldFiles returns only files older than cutoff time
func filterOldFiles(files []string, cutoff time.Time) []string {
	var oldFiles []string
	for _, file := range files {
		if isOlderThan(file, cutoff) {
			oldFiles = append(oldFiles, file)
		}
	}
	return oldFiles
}

// isOlderThan checks if file modification time is before cutoff
func isOlderThan(path string, cutoff time.Time) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.ModTime().Before(cutoff)
}

// removeFiles deletes all files in the list
func removeFiles(files []string) error {
	for _, file := range files {
		if err := os.Remove(file); err != nil {
			return fmt.Errorf("failed to remove %s: %w", file, err)
		}
	}
	return nil
}

// calculateTotalSize sums file sizes
func calculateTotalSize(files []string) int64 {
	var total int64
	for _, file := range files {
		if info, err := os.Stat(file); err == nil {
			total += info.Size()
		}
	}
	return total
}
