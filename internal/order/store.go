package order

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// State is everything the operator's device remembers about arrangement:
// the per-lane task order and the project listing order.
type State struct {
	TaskOrder    Order    `json:"taskOrder"`
	ProjectOrder []string `json:"projectsOrder"`
}

// Store persists State between sessions. Core logic only takes and returns
// State values; a Store does I/O at the edges.
type Store interface {
	Load() (State, error)
	Save(State) error
}

// FileStore keeps State as a JSON document on disk, written atomically so a
// crash mid-save never leaves a torn file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the given path. The parent
// directory is created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted state. A missing file is an empty state, not an
// error.
func (f *FileStore) Load() (State, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{TaskOrder: Order{}}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read order state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parse order state: %w", err)
	}
	if st.TaskOrder == nil {
		st.TaskOrder = Order{}
	}
	return st, nil
}

// Save writes the state, replacing the previous file in one rename.
func (f *FileStore) Save(st State) error {
	if dir := filepath.Dir(f.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("order state dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode order state: %w", err)
	}
	if err := atomic.WriteFile(f.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write order state: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store for tests and for sessions that opt out
// of persistence.
type MemoryStore struct {
	state State
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: State{TaskOrder: Order{}}}
}

// Load returns the current in-memory state.
func (m *MemoryStore) Load() (State, error) {
	return m.state, nil
}

// Save replaces the in-memory state.
func (m *MemoryStore) Save(st State) error {
	m.state = st
	return nil
}
