// Package media stores uploaded image bytes and hands back an address the
// database can keep. Backends are selected by name: "local" or "s3".
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/kinfolk/internal/model"
)

// ErrNotFound is returned by Open when no object exists at the address.
var ErrNotFound = errors.New("media object not found")

// Object identifies a stored file.
type Object struct {
	Address string
	Store   string
}

// Store persists file contents.
type Store interface {
	Name() string
	Save(ctx context.Context, filename string, r io.Reader) (Object, error)
	Open(ctx context.Context, address string) (io.ReadCloser, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

// Config selects and configures a backend.
type Config struct {
	Store    string
	LocalDir string
	S3       S3Config
}

// New builds the Store named by cfg.Store.
func New(cfg Config) (Store, error) {
	switch cfg.Store {
	case "", model.StoreLocal:
		return NewLocalStore(cfg.LocalDir)
	case model.StoreS3:
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("s3 media store: bucket is required")
		}
		return NewS3Store(cfg.S3), nil
	default:
		return nil, fmt.Errorf("unknown media store %q", cfg.Store)
	}
}

// objectKey returns a collision-free key that keeps the upload's extension.
func objectKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 10 {
		ext = ""
	}
	return uuid.NewString() + ext
}
