package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrVersionConflict signals that the object changed between lookup and write.
var ErrVersionConflict = errors.New("object version conflict")

// ErrInvalidPath is returned for empty or escaping object paths.
var ErrInvalidPath = errors.New("invalid object path")

// ObjectStore is an external host for binary media addressed by path.
//
// Exists returns the current version token of the object or an empty string
// when nothing is stored at path. Put creates the object when version is empty
// and replaces it otherwise, returning a publicly dereferenceable URL.
type ObjectStore interface {
	Exists(ctx context.Context, objectPath string) (string, error)
	Put(ctx context.Context, objectPath string, data []byte, version string) (string, error)
	Delete(ctx context.Context, objectPath string) error
	URL(objectPath string) string
}

// IsVersionConflict reports whether err came from a stale version token.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// CleanObjectPath normalises a slash separated object path and rejects
// anything that would leave the store root.
func CleanObjectPath(raw string) (string, error) {
	trimmed := strings.TrimSpace(strings.ReplaceAll(raw, "\\", "/"))
	if trimmed == "" {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean("/" + trimmed)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	for _, segment := range strings.Split(trimmed, "/") {
		if segment == ".." {
			return "", ErrInvalidPath
		}
	}
	return cleaned, nil
}
