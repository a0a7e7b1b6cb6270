// Package storage abstracts the image byte store behind a narrow interface.
// The core only ever needs a retrievable URL back; bucket layout, CDN, or
// provider mechanics stay on the other side of this boundary.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/localnerve/puzzle-rooms/internal/config"
)

// ObjectStore accepts bytes and hands back a retrievable URL.
type ObjectStore interface {
	// Put stores the body under key and returns its public URL.
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	// Delete removes the object under key. Best-effort callers may ignore
	// the error.
	Delete(ctx context.Context, key string) error
	// DeleteByURL removes the object a previous Put returned url for.
	// URLs outside this store's public prefix are a no-op.
	DeleteByURL(ctx context.Context, url string) error
}

// New selects an object store implementation from configuration.
func New(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	switch cfg.StorageDriver {
	case "s3":
		return NewS3Store(ctx, cfg)
	case "fs":
		return NewFSStore(cfg.StorageRoot, cfg.StoragePublicURL), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}
