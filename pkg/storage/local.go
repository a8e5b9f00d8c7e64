// Package storage persists uploaded media files on local disk and hands out
// public URLs for them. The rest of the system only ever stores and reads
// the returned URL string; file contents are never interpreted.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Kind string

const (
	KindAudio Kind = "audio"
	KindImage Kind = "image"
)

func (k Kind) dir() string {
	if k == KindAudio {
		return "tracks"
	}
	return "images"
}

type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates the upload directories under root. baseURL is the
// externally visible prefix the HTTP server mounts the root at.
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	for _, kind := range []Kind{KindAudio, KindImage} {
		if err := os.MkdirAll(filepath.Join(root, kind.dir()), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root returns the directory the HTTP server should serve statically.
func (s *LocalStore) Root() string { return s.root }

// Store writes the file under a unique name and returns its public URL.
func (s *LocalStore) Store(kind Kind, originalName string, r io.Reader) (string, error) {
	name := uuid.New().String() + strings.ToLower(filepath.Ext(originalName))
	path := filepath.Join(s.root, kind.dir(), name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	return fmt.Sprintf("%s/uploads/%s/%s", s.baseURL, kind.dir(), name), nil
}

// Delete removes the file a previously returned URL points at. Unknown or
// already-deleted references are not errors.
func (s *LocalStore) Delete(publicURL string) error {
	idx := strings.Index(publicURL, "/uploads/")
	if idx < 0 {
		return nil
	}
	rel := filepath.Clean(publicURL[idx+len("/uploads/"):])
	if rel == "" || strings.HasPrefix(rel, "..") {
		return nil
	}

	err := os.Remove(filepath.Join(s.root, rel))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
