package runlog

import (
	"path/filepath"
	"testing"
)

func TestAppendAndRead(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir, "trig-1")

	entries := []Entry{
		{TS: 1000, TriggerID: "trig-1", Action: "finished", Mode: "silent-execute", Status: "completed", DurationMs: 40},
		{TS: 2000, TriggerID: "trig-1", Action: "suppressed", Mode: "suppress"},
		{TS: 3000, TriggerID: "trig-1", Action: "finished", Mode: "ring-execute", Status: "failed", Error: "actuator down"},
	}
	for _, entry := range entries {
		if err := Append(path, entry, 0, 0); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := Read(path, 10, "")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	// Oldest first.
	if got[0].TS != 1000 || got[2].TS != 3000 {
		t.Fatalf("unexpected order: %d .. %d", got[0].TS, got[2].TS)
	}
	if got[2].Error != "actuator down" {
		t.Fatalf("round trip lost error field: %+v", got[2])
	}
}

func TestReadFiltersByAction(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir, "trig-1")
	_ = Append(path, Entry{TS: 1000, TriggerID: "trig-1", Action: "finished"}, 0, 0)
	_ = Append(path, Entry{TS: 2000, TriggerID: "trig-1", Action: "delayed"}, 0, 0)
	_ = Append(path, Entry{TS: 3000, TriggerID: "trig-1", Action: "delayed"}, 0, 0)

	got, err := Read(path, 10, "delayed")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 delayed entries, got %d", len(got))
	}
	for _, entry := range got {
		if entry.Action != "delayed" {
			t.Fatalf("filter leaked entry: %+v", entry)
		}
	}
}

func TestReadLimitKeepsMostRecent(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir, "trig-1")
	for i := int64(1); i <= 5; i++ {
		_ = Append(path, Entry{TS: i * 1000, TriggerID: "trig-1", Action: "finished"}, 0, 0)
	}
	got, err := Read(path, 2, "")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].TS != 4000 || got[1].TS != 5000 {
		t.Fatalf("expected the two most recent oldest-first, got %d %d", got[0].TS, got[1].TS)
	}
}

func TestReadMissingFileIsEmpty(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "runs", "nope.jsonl"), 10, "")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no entries, got %d", len(got))
	}
}

func TestAppendPrunesOversizedFile(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir, "trig-1")
	// Tiny byte cap with a keep window of 3 lines forces pruning quickly.
	for i := int64(1); i <= 10; i++ {
		if err := Append(path, Entry{TS: i, TriggerID: "trig-1", Action: "finished"}, 64, 3); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	got, err := Read(path, 100, "")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) > 3 {
		t.Fatalf("expected pruning to keep at most 3 lines, got %d", len(got))
	}
	if got[len(got)-1].TS != 10 {
		t.Fatalf("expected newest entry to survive pruning, got %d", got[len(got)-1].TS)
	}
}
