package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local implements ArtifactStore on the filesystem under one base
// directory.
type Local struct {
	baseDir string
}

// NewLocal creates a local artifact store, creating the base directory if
// needed.
func NewLocal(baseDir string) (*Local, error) {
	baseDir = filepath.Clean(baseDir)
	if baseDir == "" || baseDir == "." {
		return nil, fmt.Errorf("%w: base directory required", ErrInvalidKey)
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &Local{baseDir: baseDir}, nil
}

// Put writes the artifact, removing any partial file on write failure.
func (s *Local) Put(ctx context.Context, key string, reader io.Reader) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		os.Remove(path)
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// Get opens the artifact for reading.
func (s *Local) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	return file, nil
}

// Delete removes the artifact.
func (s *Local) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}

// Exists reports whether the artifact is present.
func (s *Local) Exists(ctx context.Context, key string) (bool, error) {
	path, err := s.resolve(key)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat artifact: %w", err)
	}
	return true, nil
}

// resolve joins the key with the base directory, rejecting traversal out of
// it.
func (s *Local) resolve(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	full := filepath.Join(s.baseDir, filepath.Clean(key))
	rel, err := filepath.Rel(s.baseDir, full)
	if err != nil || (len(rel) > 0 && rel[0] == '.') {
		return "", fmt.Errorf("%w: escapes base directory", ErrInvalidKey)
	}
	return full, nil
}
