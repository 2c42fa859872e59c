package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrTooLarge is returned when a staged upload exceeds the size limit.
var ErrTooLarge = errors.New("upload exceeds size limit")

// StagingArea holds uploaded files on local disk until they are pushed to the
// object store. Files left behind by failed pushes are swept by age.
type StagingArea struct {
	baseDir  string
	maxBytes int64
}

// NewStagingArea ensures the base directory exists. maxBytes <= 0 disables the
// size check.
func NewStagingArea(baseDir string, maxBytes int64) (*StagingArea, error) {
	if baseDir == "" {
		baseDir = "./tmp/uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	return &StagingArea{baseDir: baseDir, maxBytes: maxBytes}, nil
}

// Stage copies r into a new uniquely named file and returns its name.
func (s *StagingArea) Stage(prefix string, r io.Reader) (string, error) {
	file, err := os.CreateTemp(s.baseDir, sanitizePrefix(prefix)+"-*")
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}
	name := filepath.Base(file.Name())

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	written, copyErr := io.Copy(file, src)
	closeErr := file.Close()
	if copyErr == nil && s.maxBytes > 0 && written > s.maxBytes {
		copyErr = ErrTooLarge
	}
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(file.Name())
		if errors.Is(copyErr, ErrTooLarge) {
			return "", copyErr
		}
		return "", fmt.Errorf("write staged file: %w", copyErr)
	}
	return name, nil
}

// Read returns the contents of a staged file.
func (s *StagingArea) Read(name string) ([]byte, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read staged file: %w", err)
	}
	return data, nil
}

// Delete removes a staged file if present.
func (s *StagingArea) Delete(name string) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete staged file: %w", err)
	}
	return nil
}

// CleanupOlderThan removes staged files older than ttl and returns their names.
func (s *StagingArea) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	deleted := make([]string, 0)
	err := filepath.WalkDir(s.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			rel = path
		}
		deleted = append(deleted, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sweep staging: %w", err)
	}
	return deleted, nil
}

// Path exposes the on-disk location of a staged file.
func (s *StagingArea) Path(name string) string {
	return filepath.Join(s.baseDir, filepath.Base(name))
}

func (s *StagingArea) resolve(name string) (string, error) {
	base := filepath.Base(name)
	if name == "" || base != name || base == "." || base == ".." {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.baseDir, base), nil
}

func sanitizePrefix(prefix string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, prefix)
	if cleaned == "" {
		return "upload"
	}
	return cleaned
}
