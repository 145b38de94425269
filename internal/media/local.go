package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukerupert/kinfolk/internal/model"
)

// LocalStore keeps files in a directory on disk. Addresses are file names
// relative to that directory.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		dir = "media"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Name() string { return model.StoreLocal }

func (s *LocalStore) Save(ctx context.Context, filename string, r io.Reader) (Object, error) {
	key := objectKey(filename)
	path := filepath.Join(s.dir, key)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Object{}, fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return Object{}, fmt.Errorf("write media file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return Object{}, fmt.Errorf("close media file: %w", err)
	}
	return Object{Address: key, Store: model.StoreLocal}, nil
}

func (s *LocalStore) Open(ctx context.Context, address string) (io.ReadCloser, error) {
	if address == "" || strings.ContainsAny(address, `/\`) || address == ".." {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, address))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open media file: %w", err)
	}
	return f, nil
}
