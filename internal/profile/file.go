package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps one JSON document per player in dir.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(username string) (string, error) {
	if err := ValidateName(username); err != nil {
		return "", err
	}
	return filepath.Join(f.dir, username+".json"), nil
}

func (f *FileStore) Load(_ context.Context, username string) (Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load(username)
}

func (f *FileStore) load(username string) (Profile, error) {
	path, err := f.path(username)
	if err != nil {
		return Profile{}, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("read profile %s: %w", username, err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile %s: %w", username, err)
	}
	if p.Skills == nil {
		p.Skills = map[string]int{}
	}
	// The file name is the key; a hand-edited username inside must not win.
	p.Username = username
	return p, nil
}

func (f *FileStore) Save(_ context.Context, p Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path, err := f.path(p.Username)
	if err != nil {
		return err
	}

	var prev *Profile
	if old, err := f.load(p.Username); err == nil {
		prev = &old
	}
	p = stamp(p, prev, time.Now())

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write profile %s: %w", p.Username, err)
	}
	return os.Rename(tmp, path)
}

func (f *FileStore) Close() error { return nil }
