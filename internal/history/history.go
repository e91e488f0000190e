// Package history records pipeline runs in a YAML ledger under the user's
// state directory.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// HistoryFileName is the name of the history file.
	HistoryFileName = "history.yaml"
	// BackupSuffix is the suffix for backup files when corruption is detected.
	BackupSuffix = ".backup"
	// DefaultMaxEntries bounds the ledger; older runs are pruned first.
	DefaultMaxEntries = 200
)

// Status values for history entries.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Entry is one pipeline run.
type Entry struct {
	// ID is the run identifier shared with the run's log lines.
	ID      string `yaml:"id"`
	Outcome string `yaml:"outcome"`
	// Schema is the synthesized schema name, empty until synthesis succeeds.
	Schema      string     `yaml:"schema,omitempty"`
	OutputDir   string     `yaml:"output_dir,omitempty"`
	Status      string     `yaml:"status"`
	CreatedAt   time.Time  `yaml:"created_at"`
	CompletedAt *time.Time `yaml:"completed_at,omitempty"`
	ExitCode    int        `yaml:"exit_code"`
	// Duration uses Go duration format (e.g. "2m15.123s").
	Duration string `yaml:"duration,omitempty"`
	// Error is the message of the error that aborted the run.
	Error string `yaml:"error,omitempty"`
}

// File is the on-disk ledger, oldest entry first.
type File struct {
	Entries []Entry `yaml:"entries"`
}

// DefaultStateDir returns ~/.outcomegen/state.
func DefaultStateDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".outcomegen", "state"), nil
}

// Load reads the ledger from stateDir. A missing file is an empty ledger; a
// corrupted one is moved aside with BackupSuffix and treated as empty.
func Load(stateDir string) (*File, error) {
	historyPath := filepath.Join(stateDir, HistoryFileName)

	data, err := os.ReadFile(historyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{Entries: []Entry{}}, nil
		}
		return nil, fmt.Errorf("reading history file: %w", err)
	}

	var history File
	if err := yaml.Unmarshal(data, &history); err != nil {
		if backupErr := backupCorruptedFile(historyPath); backupErr != nil {
			return nil, fmt.Errorf("backing up corrupted history file: %w", backupErr)
		}
		return &File{Entries: []Entry{}}, nil
	}

	if history.Entries == nil {
		history.Entries = []Entry{}
	}
	return &history, nil
}

func backupCorruptedFile(path string) error {
	if err := os.Rename(path, path+BackupSuffix); err != nil {
		return fmt.Errorf("renaming corrupted file to backup: %w", err)
	}
	return nil
}

// Save writes the ledger atomically, creating stateDir if needed.
func Save(stateDir string, history *File) error {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := yaml.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}

	historyPath := filepath.Join(stateDir, HistoryFileName)
	tmpPath := historyPath + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing temp history file: %w", err)
	}
	if err := os.Rename(tmpPath, historyPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp history file: %w", err)
	}
	return nil
}

// Clear removes all entries.
func Clear(stateDir string) error {
	return Save(stateDir, &File{Entries: []Entry{}})
}

// Recent returns up to limit entries, newest first. A limit <= 0 returns all.
func (f *File) Recent(limit int) []Entry {
	n := len(f.Entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, 0, n)
	for i := len(f.Entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, f.Entries[i])
	}
	return out
}

// Find returns the newest entry whose ID equals id or, for ids of at least
// four characters, starts with it.
func (f *File) Find(id string) (Entry, bool) {
	for i := len(f.Entries) - 1; i >= 0; i-- {
		e := f.Entries[i]
		if e.ID == id || (len(id) >= 4 && strings.HasPrefix(e.ID, id)) {
			return e, true
		}
	}
	return Entry{}, false
}
