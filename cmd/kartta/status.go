package main

import (
	"fmt"
	"os"
	"time"

	"github.com/yairfalse/kartta/checkpoint"
	"github.com/yairfalse/kartta/config"
	"github.com/yairfalse/kartta/journal"
)

// StatusCommand implements the 'kartta status' command
type StatusCommand struct {
	ConfigPath string
}

// Run executes the status command
func (cmd *StatusCommand) Run() error {
	cfg, err := config.LoadConfig(resolveConfigPath(cmd.ConfigPath))
	if err != nil {
		return err
	}

	fmt.Printf("Provider:   %s\n", cfg.Provider)
	fmt.Printf("Root scope: %s\n", cfg.RootScope)
	fmt.Printf("Output dir: %s\n", cfg.Output.Dir)
	fmt.Printf("\n")

	if err := printCheckpoint(cfg.Checkpoint.Path); err != nil {
		return err
	}
	printJournal(cfg.Journal.Dir)
	return nil
}

// printCheckpoint shows resumable state, if any. Opening with resume
// keeps the epoch, so inspection never invalidates completed marks.
func printCheckpoint(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("Checkpoint: none\n")
		return nil
	}

	store, err := checkpoint.Open(path, true)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer func() { _ = store.Close() }()

	completed := store.CompletedCount()

	fmt.Printf("Checkpoint: %s\n", path)
	fmt.Printf("   Epoch:           %d\n", store.Epoch())
	fmt.Printf("   Completed items: %d\n", completed)

	if completed > 0 {
		fmt.Printf("\nAn interrupted run can continue with: kartta export --resume\n")
	}
	return nil
}

// printJournal summarizes past run events on disk
func printJournal(dir string) {
	stats := journal.GetStatsFromDir(journal.DefaultConfig(dir))
	if stats.TotalFiles == 0 {
		fmt.Printf("Journal:    none\n")
		return
	}

	fmt.Printf("Journal:    %s\n", dir)
	fmt.Printf("   Files:         %d\n", stats.TotalFiles)
	fmt.Printf("   Size:          %d bytes\n", stats.TotalSizeBytes)
	fmt.Printf("   Newest file:   %s\n", stats.NewestFile.Format(time.RFC3339))
	fmt.Printf("   Last sequence: %d\n", stats.LastSequence)
}
