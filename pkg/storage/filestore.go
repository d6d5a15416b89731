package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/solacehq/pulse/pkg/trigger"
)

// triggerFile is the on-disk format of the file trigger store.
type triggerFile struct {
	Version  int               `json:"version"`
	Triggers []trigger.Trigger `json:"triggers"`
}

// FileTriggerStore keeps triggers in a single json5 file with atomic writes
// and a .bak copy. Meant for single-user deployments without sqlite; the
// whole file is rewritten on every change.
type FileTriggerStore struct {
	mu   sync.Mutex
	path string
}

var _ trigger.Store = (*FileTriggerStore)(nil)

func NewFileTriggerStore(path string) *FileTriggerStore {
	return &FileTriggerStore{path: filepath.Clean(path)}
}

func (s *FileTriggerStore) load() (triggerFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return triggerFile{Version: 1, Triggers: []trigger.Trigger{}}, nil
		}
		return triggerFile{}, err
	}
	var parsed triggerFile
	if err := json5.Unmarshal(data, &parsed); err != nil {
		// Corrupt main file: fall back to the .bak copy.
		bak, bakErr := os.ReadFile(s.path + ".bak")
		if bakErr != nil || json5.Unmarshal(bak, &parsed) != nil {
			return triggerFile{}, fmt.Errorf("trigger store corrupt: %w", err)
		}
	}
	if parsed.Version == 0 {
		parsed.Version = 1
	}
	if parsed.Triggers == nil {
		parsed.Triggers = []trigger.Trigger{}
	}
	return parsed, nil
}

func (s *FileTriggerStore) save(file triggerFile) error {
	if file.Version == 0 {
		file.Version = 1
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	payload, err := json5.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}
	_ = os.WriteFile(s.path+".bak", payload, 0o644)
	return nil
}

func (s *FileTriggerStore) Get(_ context.Context, id string) (*trigger.Trigger, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := s.load()
	if err != nil {
		return nil, false, err
	}
	for _, trig := range file.Triggers {
		if trig.ID == id {
			return &trig, true, nil
		}
	}
	return nil, false, nil
}

func (s *FileTriggerStore) List(_ context.Context) ([]trigger.Trigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := s.load()
	if err != nil {
		return nil, err
	}
	return file.Triggers, nil
}

func (s *FileTriggerStore) Put(_ context.Context, trig trigger.Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := s.load()
	if err != nil {
		return err
	}
	replaced := false
	for i := range file.Triggers {
		if file.Triggers[i].ID == trig.ID {
			file.Triggers[i] = trig
			replaced = true
			break
		}
	}
	if !replaced {
		file.Triggers = append(file.Triggers, trig)
	}
	return s.save(file)
}

func (s *FileTriggerStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := s.load()
	if err != nil {
		return false, err
	}
	before := len(file.Triggers)
	file.Triggers = slices.DeleteFunc(file.Triggers, func(trig trigger.Trigger) bool {
		return trig.ID == id
	})
	if len(file.Triggers) == before {
		return false, nil
	}
	return true, s.save(file)
}
