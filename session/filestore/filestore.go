// Package filestore keeps session snapshots as files, one per key, readable
// only by the owning user.
package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/jrsteele09/go-gopay-client/session"
)

var _ session.Store = (*Store)(nil)

var validKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultDir is ~/.config/gopay.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "gopay"), nil
}

func (s *Store) Save(_ context.Context, key string, blob []byte) error {
	path, err := s.path(key)
	if err != nil {
		return &session.StoreError{Op: "save", Key: key, Cause: err}
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return &session.StoreError{Op: "save", Key: key, Cause: err}
	}

	// Readers only ever see a complete file.
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return &session.StoreError{Op: "save", Key: key, Cause: err}
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return &session.StoreError{Op: "save", Key: key, Cause: err}
	}
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return &session.StoreError{Op: "save", Key: key, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return &session.StoreError{Op: "save", Key: key, Cause: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &session.StoreError{Op: "save", Key: key, Cause: err}
	}
	return nil
}

func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, &session.StoreError{Op: "load", Key: key, Cause: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, session.ErrNotFound
		}
		return nil, &session.StoreError{Op: "load", Key: key, Cause: err}
	}
	return data, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return &session.StoreError{Op: "delete", Key: key, Cause: err}
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &session.StoreError{Op: "delete", Key: key, Cause: err}
	}
	return nil
}

func (s *Store) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid session key %q", key)
	}
	return filepath.Join(s.dir, key+".session"), nil
}
