// Package secrets persists the session credentials: a JSON file with
// owner-only permissions, or the operating system keyring.
package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/theakshaypant/calmerge/internal/core"
)

// FileStore keeps credentials in a JSON file readable only by the owner.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path. The file is created on the
// first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file the store writes to.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load() (core.Credentials, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return core.Credentials{}, core.ErrNoCredentials
	}
	if err != nil {
		return core.Credentials{}, fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()

	var creds core.Credentials
	if err := json.NewDecoder(f).Decode(&creds); err != nil {
		return core.Credentials{}, fmt.Errorf("read session file %s: %w", s.path, err)
	}
	if creds.Token == "" {
		return core.Credentials{}, core.ErrNoCredentials
	}
	return creds, nil
}

func (s *FileStore) Save(creds core.Credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(creds)
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
