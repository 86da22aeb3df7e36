package journal

import (
	"os"
	"time"
)

// Stats represents journal statistics
type Stats struct {
	TotalFiles      int
	TotalSizeBytes  int64
	OldestFile      time.Time
	NewestFile      time.Time
	CurrentFileSize int64
	LastSequence    int64
}

// GetStats returns current journal statistics
func (j *Journal) GetStats() Stats {
	j.mu.Lock()
	defer j.mu.Unlock()

	stats := statsForFiles(j.listFiles())
	stats.LastSequence = j.sequence
	if info, err := j.file.Stat(); err == nil {
		stats.CurrentFileSize = info.Size()
	}
	return stats
}

// GetStatsFromDir returns statistics for a journal directory without an
// active journal
func GetStatsFromDir(config Config) Stats {
	if config.FilePrefix == "" {
		config.FilePrefix = "kartta"
	}
	files := findAllJournalFiles(config.Dir, config.FilePrefix)
	stats := statsForFiles(files)
	stats.LastSequence = findLastSequenceInFiles(files)
	return stats
}

func statsForFiles(files []string) Stats {
	stats := Stats{TotalFiles: len(files)}
	if len(files) == 0 {
		return stats
	}
	stats.TotalSizeBytes = calculateTotalSize(files)
	stats.OldestFile, stats.NewestFile = findTimeRange(files)
	return stats
}

// findTimeRange returns oldest and newest file modification times
func findTimeRange(files []string) (oldest, newest time.Time) {
	for i, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		modTime := info.ModTime()
		if i == 0 {
			oldest, newest = modTime, modTime
			continue
		}
		if modTime.Before(oldest) {
			oldest = modTime
		}
		if modTime.After(newest) {
			newest = modTime
		}
	}
	return oldest, newest
}
