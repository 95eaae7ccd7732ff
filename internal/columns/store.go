package columns

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
)

// FileStore keeps one JSON file per client under Dir, named
// "<client>.contacts-columns.json". Writes are atomic (temp file plus
// rename). Files may contain comments and trailing commas.
type FileStore struct {
	Dir string
}

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create preferences dir: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

func (s *FileStore) path(client string) string {
	return filepath.Join(s.Dir, safeName(client)+"."+Key+".json")
}

// Load reads the configuration of client.
func (s *FileStore) Load(_ context.Context, client string) ([]Column, bool, error) {
	data, err := os.ReadFile(s.path(client))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, false, fmt.Errorf("invalid JSONC in %s: %w", s.path(client), err)
	}
	var cols []Column
	if err := json.Unmarshal(std, &cols); err != nil {
		return nil, false, fmt.Errorf("invalid columns in %s: %w", s.path(client), err)
	}
	return cols, true, nil
}

// Save writes the configuration of client atomically.
func (s *FileStore) Save(_ context.Context, client string, cols []Column) error {
	data, err := json.MarshalIndent(cols, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return atomic.WriteFile(s.path(client), bytes.NewReader(data))
}

// Delete removes the configuration of client. A missing file is not an
// error.
func (s *FileStore) Delete(_ context.Context, client string) error {
	err := os.Remove(s.path(client))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// safeName maps a client id onto a file name that cannot escape Dir.
func safeName(client string) string {
	var b strings.Builder
	for _, r := range client {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			fmt.Fprintf(&b, "%%%02x", r)
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// MemStore keeps configurations in memory.
type MemStore struct {
	mu   sync.Mutex
	data map[string][]Column
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore { return &MemStore{data: make(map[string][]Column)} }

func (s *MemStore) Load(_ context.Context, client string) ([]Column, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cols, ok := s.data[client]
	return clone(cols), ok, nil
}

func (s *MemStore) Save(_ context.Context, client string, cols []Column) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[client] = clone(cols)
	return nil
}

func (s *MemStore) Delete(_ context.Context, client string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, client)
	return nil
}
