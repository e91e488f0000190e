package history

import (
	"fmt"
	"sync"
	"time"
)

// Writer appends run entries to the ledger and prunes it to MaxEntries.
type Writer struct {
	StateDir   string
	MaxEntries int

	mu sync.Mutex
}

// NewWriter creates a Writer for stateDir.
func NewWriter(stateDir string, maxEntries int) *Writer {
	return &Writer{StateDir: stateDir, MaxEntries: maxEntries}
}

// Start records a running entry for a run that is about to begin.
func (w *Writer) Start(runID, outcomePath, outputDir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	history, err := Load(w.StateDir)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	history.Entries = append(history.Entries, Entry{
		ID:        runID,
		Outcome:   outcomePath,
		OutputDir: outputDir,
		Status:    StatusRunning,
		CreatedAt: time.Now(),
	})
	if w.MaxEntries > 0 && len(history.Entries) > w.MaxEntries {
		history.Entries = history.Entries[len(history.Entries)-w.MaxEntries:]
	}

	if err := Save(w.StateDir, history); err != nil {
		return fmt.Errorf("writing start entry: %w", err)
	}
	return nil
}

// Completion is the final state of a run.
type Completion struct {
	Status   string
	ExitCode int
	Schema   string
	Duration time.Duration
	Err      error
}

// Complete updates the entry started with runID.
func (w *Writer) Complete(runID string, c Completion) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	history, err := Load(w.StateDir)
	if err != nil {
		return fmt.Errorf("loading history for update: %w", err)
	}

	found := false
	for i := range history.Entries {
		e := &history.Entries[i]
		if e.ID != runID {
			continue
		}
		now := time.Now()
		e.Status = c.Status
		e.ExitCode = c.ExitCode
		e.Schema = c.Schema
		e.Duration = c.Duration.Round(time.Millisecond).String()
		e.CompletedAt = &now
		if c.Err != nil {
			e.Error = c.Err.Error()
		}
		found = true
		break
	}
	if !found {
		return fmt.Errorf("entry not found with ID: %s", runID)
	}

	if err := Save(w.StateDir, history); err != nil {
		return fmt.Errorf("saving updated history: %w", err)
	}
	return nil
}
