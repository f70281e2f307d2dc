package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore keeps objects under a directory on disk. The HTTP server
// exposes the directory, so public URLs are BaseURL/key.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: baseURL}, nil
}

// Dir returns the root directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Put writes data to dir/key atomically.
func (s *LocalStore) Put(ctx context.Context, key string, _ PutOptions, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp object: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store object: %w", err)
	}

	return joinURL(s.baseURL, key), nil
}

// Get reads dir/key.
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, filepath.FromSlash(key)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return data, nil
}
