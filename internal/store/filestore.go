package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gearline/internal/guard"
)

// FileStore keeps one <identity>.json file per snapshot under a root
// directory. Every resolved path is confined to the root before use.
type FileStore struct {
	root string
}

// NewFileStore creates the root directory if missing.
func NewFileStore(root string) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve store root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &FileStore{root: abs}, nil
}

// Root returns the confined directory.
func (s *FileStore) Root() string { return s.root }

func (s *FileStore) pathFor(key string) (string, error) {
	if !guard.IsValidIdentity(key) {
		return "", fmt.Errorf("invalid snapshot key %q", guard.SanitizeForLog(key))
	}
	candidate := filepath.Join(s.root, key+".json")
	confined, err := guard.ConfinePath(candidate, s.root)
	if err != nil {
		return "", fmt.Errorf("snapshot path for %q: %w", guard.SanitizeForLog(key), err)
	}
	return confined, nil
}

func (s *FileStore) Exists(key string) (bool, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) SizeOf(key string) (int64, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *FileStore) Read(key string) ([]byte, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *FileStore) Put(key string, data []byte) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	// Write-then-rename so readers never observe a half-written snapshot.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *FileStore) Delete(key string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// List returns the identities with a stored snapshot, sorted.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(keys)
	return keys, nil
}
