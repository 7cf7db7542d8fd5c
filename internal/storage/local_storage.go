package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirPerm = 0o755
)

type LocalStorage struct {
	layout *Layout
}

func NewLocalStorage(layout *Layout) (*LocalStorage, error) {
	if err := os.MkdirAll(layout.Root(), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err := os.MkdirAll(layout.IncomingDirectory(), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create incoming directory: %w", err)
	}

	return &LocalStorage{layout: layout}, nil
}

func (s *LocalStorage) Layout() *Layout {
	return s.layout
}

// EnsureUserDirectory creates the user's directory if needed and returns it.
func (s *LocalStorage) EnsureUserDirectory(userID string) (string, error) {
	dir := s.layout.UserDirectory(userID)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("failed to create user directory: %w", err)
	}
	return dir, nil
}

// Move renames src to dst. Both live under the storage root, so this is a
// rename on one filesystem.
func (s *LocalStorage) Move(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), dirPerm); err != nil {
		return err
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("destination already exists: %s", dst)
	}
	return os.Rename(src, dst)
}

// Delete removes a file; a missing file is not an error.
func (s *LocalStorage) Delete(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStorage) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("not a regular file: %s", path)
	}
	return info.Size(), nil
}

func (s *LocalStorage) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (s *LocalStorage) DeleteUserDirectory(userID string) error {
	dir := s.layout.UserDirectory(userID)
	if userID == "" || filepath.Dir(dir) != s.layout.Root() || filepath.Base(dir) != userID {
		return fmt.Errorf("invalid user id: %q", userID)
	}
	return os.RemoveAll(dir)
}
