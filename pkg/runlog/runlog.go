// Package runlog keeps an append-only jsonl history of trigger firings,
// one file per trigger, pruned by size.
package runlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one firing outcome.
type Entry struct {
	TS         int64  `json:"ts"`
	TriggerID  string `json:"triggerId"`
	Action     string `json:"action"` // finished | suppressed | delayed
	Mode       string `json:"mode,omitempty"`
	Status     string `json:"status,omitempty"`
	Error      string `json:"error,omitempty"`
	RunAtMs    int64  `json:"runAtMs,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

// Path returns runs/<triggerID>.jsonl under dir.
func Path(dir, triggerID string) string {
	return filepath.Join(filepath.Clean(dir), "runs", triggerID+".jsonl")
}

// Append writes an entry and prunes the file if it grew past maxBytes.
func Append(path string, entry Entry, maxBytes int64, keepLines int) error {
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}
	if keepLines <= 0 {
		keepLines = 2000
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(payload, '\n')); err != nil {
		_ = f.Close()
		return err
	}
	_ = f.Close()
	return prune(path, maxBytes, keepLines)
}

func prune(path string, maxBytes int64, keepLines int) error {
	stat, err := os.Stat(path)
	if err != nil || stat.Size() <= maxBytes {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	lines := splitLines(data)
	if len(lines) <= keepLines {
		return nil
	}
	lines = lines[len(lines)-keepLines:]
	tmp := path + ".tmp"
	payload := []byte(strings.Join(lines, "\n") + "\n")
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return nil
	}
	_ = os.Rename(tmp, path)
	return nil
}

// Read returns up to limit most recent entries, oldest first, optionally
// filtered by action.
func Read(path string, limit int, action string) ([]Entry, error) {
	if limit <= 0 {
		limit = 200
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return []Entry{}, nil
	}
	lines := splitLines(data)
	entries := make([]Entry, 0)
	for i := len(lines) - 1; i >= 0 && len(entries) < limit; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.TriggerID == "" || entry.TS == 0 {
			continue
		}
		if action != "" && entry.Action != action {
			continue
		}
		entries = append(entries, entry)
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func splitLines(data []byte) []string {
	var lines []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			if line := string(data[start:i]); line != "" {
				lines = append(lines, line)
			}
			start = i + 1
		}
	}
	if start < len(data) {
		if line := string(data[start:]); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
