package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LocalObjectStore keeps media on disk and serves it under /media. Versions are
// the SHA-256 of the stored bytes.
type LocalObjectStore struct {
	dir        string
	publicBase string
	mu         sync.Mutex
}

// NewLocalObjectStore creates dir when missing.
func NewLocalObjectStore(dir, publicBase string) (*LocalObjectStore, error) {
	if dir == "" {
		dir = "./static"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &LocalObjectStore{dir: dir, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

// Dir is the served root.
func (s *LocalObjectStore) Dir() string {
	return s.dir
}

func (s *LocalObjectStore) Exists(_ context.Context, objectPath string) (string, error) {
	p, err := CleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version(p)
}

func (s *LocalObjectStore) Put(_ context.Context, objectPath string, data []byte, version string) (string, error) {
	p, err := CleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.version(p)
	if err != nil {
		return "", err
	}
	if current != version {
		return "", fmt.Errorf("%w: %s", ErrVersionConflict, p)
	}

	target := filepath.Join(s.dir, filepath.FromSlash(p))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("prepare media directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	return s.URL(p), nil
}

func (s *LocalObjectStore) Delete(_ context.Context, objectPath string) error {
	p, err := CleanObjectPath(objectPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(p))); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete media file: %w", err)
	}
	return nil
}

func (s *LocalObjectStore) URL(objectPath string) string {
	return s.publicBase + "/media/" + strings.TrimPrefix(objectPath, "/")
}

func (s *LocalObjectStore) version(p string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.FromSlash(p)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read media file: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

var _ ObjectStore = (*LocalObjectStore)(nil)
