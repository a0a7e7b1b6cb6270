package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FSStore keeps objects on the local filesystem. Local development only;
// the public URL must be served by something else (the reverse proxy or a
// static file route).
type FSStore struct {
	root      string
	publicURL string
}

// NewFSStore builds a filesystem store rooted at root.
func NewFSStore(root, publicURL string) *FSStore {
	return &FSStore{
		root:      root,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

// Put writes the body under root/key, creating parent directories.
func (s *FSStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create object %s: %w", key, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return "", fmt.Errorf("failed to write object %s: %w", key, err)
	}

	return s.publicURL + "/" + key, nil
}

// DeleteByURL removes the object behind a public URL this store produced.
func (s *FSStore) DeleteByURL(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.publicURL+"/")
	if !ok {
		return nil
	}
	return s.Delete(ctx, key)
}

// Delete removes the object file. Missing files are not an error.
func (s *FSStore) Delete(ctx context.Context, key string) error {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}
