package cooldown

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists values as a JSON object. Writes go through a temp file and
// rename. Compare-and-swap is atomic only within one process.
type FileStore struct {
	mu       sync.Mutex
	filePath string
}

// NewFileStore creates the parent directory if needed. A missing file reads as empty.
func NewFileStore(filePath string) (*FileStore, error) {
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}
	return &FileStore{filePath: filePath}, nil
}

func (f *FileStore) Get(_ context.Context, key string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, err := f.load()
	if err != nil {
		return 0, err
	}
	return state[key], nil
}

func (f *FileStore) Set(_ context.Context, key string, value float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, err := f.load()
	if err != nil {
		return err
	}
	state[key] = value
	return f.save(state)
}

func (f *FileStore) CompareAndSwap(_ context.Context, key string, old, new float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, err := f.load()
	if err != nil {
		return false, err
	}
	if state[key] != old {
		return false, nil
	}
	state[key] = new
	return true, f.save(state)
}

func (f *FileStore) Close() error { return nil }

func (f *FileStore) load() (map[string]float64, error) {
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]float64{}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	state := map[string]float64{}
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return state, nil
}

func (f *FileStore) save(state map[string]float64) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, f.filePath)
}
