// Package history records calibration runs for provenance.
//
// Every solve writes a Record into a per-user history file, so a
// calibration JSON found on disk can be traced back to the command,
// inputs, and time that produced it via its run ID.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Record is one completed calibration run.
type Record struct {
	RunID      string    `json:"run_id"`
	Command    string    `json:"command"` // e.g. "gaincal", "peel"
	Input      string    `json:"input"`   // measurement-set path
	SkyModel   string    `json:"sky_model,omitempty"`
	Beam       string    `json:"beam,omitempty"`
	Output     string    `json:"output,omitempty"`
	Flagged    int       `json:"flagged"` // non-converged solution channels
	Duration   float64   `json:"duration_seconds"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// maxRecords bounds the history file; older runs fall off the end.
const maxRecords = 500

// Store appends run records to a JSON file.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a history store at path. If path is empty the default
// per-user location (~/.config/ttcal/history.json) is used.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		path = filepath.Join(home, ".config", "ttcal", "history.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the history file path.
func (s *Store) Path() string { return s.path }

// Append adds a record, trimming the file to the most recent maxRecords.
func (s *Store) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	records = append(records, rec)
	if len(records) > maxRecords {
		records = records[len(records)-maxRecords:]
	}
	return s.save(records)
}

// List returns all recorded runs, oldest first.
func (s *Store) List() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Find returns the record with the given run ID, or false.
func (s *Store) Find(runID string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return Record{}, false, err
	}
	for _, rec := range records {
		if rec.RunID == runID {
			return rec, true, nil
		}
	}
	return Record{}, false, nil
}

func (s *Store) load() ([]Record, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		// A corrupt history file should not block calibration work;
		// start over.
		return nil, nil
	}
	return records, nil
}

func (s *Store) save(records []Record) error {
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write history file: %w", err)
	}
	return nil
}
