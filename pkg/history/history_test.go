package history

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func record(runID string) Record {
	now := time.Now()
	return Record{
		RunID:      runID,
		Command:    "gaincal",
		Input:      "obs.ms.json",
		SkyModel:   "sources.toml",
		Beam:       "sine1.6",
		Output:     "calibration.json",
		Flagged:    2,
		Duration:   1.5,
		StartedAt:  now.Add(-time.Second),
		FinishedAt: now,
	}
}

func TestAppendAndList(t *testing.T) {
	s := testStore(t)

	if err := s.Append(record("run-1")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := s.Append(record("run-2")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("List() returned %d records, want 2", len(records))
	}
	// Oldest first.
	if records[0].RunID != "run-1" || records[1].RunID != "run-2" {
		t.Errorf("order = %q, %q", records[0].RunID, records[1].RunID)
	}
	if records[0].Command != "gaincal" || records[0].Flagged != 2 {
		t.Errorf("record fields lost: %+v", records[0])
	}
}

func TestFind(t *testing.T) {
	s := testStore(t)
	if err := s.Append(record("run-x")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	rec, ok, err := s.Find("run-x")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if !ok || rec.RunID != "run-x" {
		t.Errorf("Find() = %+v, %v", rec, ok)
	}

	if _, ok, _ := s.Find("absent"); ok {
		t.Error("Find() matched a missing run ID")
	}
}

func TestTrimToMaxRecords(t *testing.T) {
	s := testStore(t)
	for i := 0; i < maxRecords+10; i++ {
		if err := s.Append(record("run-" + strconv.Itoa(i))); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	records, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != maxRecords {
		t.Fatalf("List() returned %d records, want %d", len(records), maxRecords)
	}
	// The oldest runs fell off.
	if records[0].RunID != "run-10" {
		t.Errorf("oldest surviving record = %q, want run-10", records[0].RunID)
	}
}

func TestCorruptFileStartsOver(t *testing.T) {
	s := testStore(t)
	if err := os.WriteFile(s.Path(), []byte("not json"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	records, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("List() on corrupt file = %d records, want 0", len(records))
	}

	if err := s.Append(record("fresh")); err != nil {
		t.Fatalf("Append() after corruption error = %v", err)
	}
	records, _ = s.List()
	if len(records) != 1 || records[0].RunID != "fresh" {
		t.Errorf("recovery failed: %+v", records)
	}
}
