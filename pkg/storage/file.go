package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"paydesk/pkg/session"
)

// FileName is the session file created inside the data directory.
const FileName = session.StorageKey + ".json"

// FileStorage keeps the session in a single JSON file.
type FileStorage struct {
	path string
}

// NewFileStorage creates a file backend rooted at dataDir.
func NewFileStorage(dataDir string) (*FileStorage, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileStorage{path: filepath.Join(dataDir, FileName)}, nil
}

// Path returns the session file location.
func (f *FileStorage) Path() string {
	return f.path
}

// Load reads the session file.
func (f *FileStorage) Load() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	return data, nil
}

// Save replaces the session file atomically: write to a temp file, then rename.
func (f *FileStorage) Save(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp session file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp session file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Remove deletes the session file. A missing file is not an error.
func (f *FileStorage) Remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
