// Package storage persists per-attempt diagnostic artifacts (screenshots,
// log excerpts) on the local filesystem or in S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrNotFound is returned when no artifact exists under the key.
	ErrNotFound = errors.New("artifact not found")

	// ErrInvalidKey is returned for empty keys or keys that escape the
	// store's root.
	ErrInvalidKey = errors.New("invalid artifact key")
)

// ArtifactStore stores and retrieves attempt artifacts by key. Keys are
// relative, slash-separated paths; callers derive them from identities via
// identutil so they are always store-safe.
type ArtifactStore interface {
	Put(ctx context.Context, key string, reader io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Config selects and parameterizes the artifact backend.
type Config struct {
	// Type is "local" or "s3".
	Type string

	// BaseDir roots the local backend.
	BaseDir string

	// Bucket and Region parameterize the S3 backend.
	Bucket string
	Region string
}

// New creates an ArtifactStore from configuration.
func New(cfg Config) (ArtifactStore, error) {
	switch strings.ToLower(cfg.Type) {
	case "local":
		return NewLocal(cfg.BaseDir)
	case "s3":
		return NewS3(cfg.Bucket, cfg.Region)
	default:
		return nil, fmt.Errorf("unsupported artifact storage type: %q", cfg.Type)
	}
}
