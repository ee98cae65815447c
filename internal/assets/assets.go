// Package assets deletes member-uploaded files such as icons.
package assets

import (
	"context"
	"fmt"
	"strings"
)

// URLPrefix is the public path under which uploads are served. Icon paths
// stored on members start with it.
const URLPrefix = "/uploads/"

// Store removes uploaded files. Deleting a file that does not exist is not
// an error.
type Store interface {
	Delete(ctx context.Context, path string) error
}

// Type selects a Store implementation.
type Type string

const (
	TypeLocal Type = "local"
	TypeS3    Type = "s3"
)

// Config holds configuration for the asset backends.
type Config struct {
	Type      Type
	LocalPath string
	S3        S3Config
}

type S3Config struct {
	Bucket string
	Region string
	Prefix string
}

// New creates the Store selected by cfg.Type.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case TypeLocal, "":
		basePath := cfg.LocalPath
		if basePath == "" {
			basePath = "./data/uploads"
		}
		return NewLocalStore(basePath)

	case TypeS3:
		if cfg.S3.Bucket == "" || cfg.S3.Region == "" {
			return nil, fmt.Errorf("S3 asset storage requires a bucket and a region")
		}
		return NewS3Store(ctx, cfg.S3)

	default:
		return nil, fmt.Errorf("unknown asset storage type: %s", cfg.Type)
	}
}

// keyFor turns a stored icon path into a storage key relative to the upload
// root. It returns false for paths outside the upload root.
func keyFor(path string) (string, bool) {
	key, ok := strings.CutPrefix(path, URLPrefix)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}
