package service

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/kinfolk/internal/database"
	"github.com/dukerupert/kinfolk/internal/media"
	"github.com/dukerupert/kinfolk/internal/model"
)

// memMedia is an in-memory media.Store.
type memMedia struct {
	mu      sync.Mutex
	objects map[string][]byte
	saveErr error
	n       int
}

func newMemMedia() *memMedia {
	return &memMedia{objects: make(map[string][]byte)}
}

func (m *memMedia) Name() string { return model.StoreLocal }

func (m *memMedia) Save(_ context.Context, filename string, r io.Reader) (media.Object, error) {
	if m.saveErr != nil {
		return media.Object{}, m.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return media.Object{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	key := fmt.Sprintf("%d-%s", m.n, filename)
	m.objects[key] = data
	return media.Object{Address: key, Store: model.StoreLocal}, nil
}

func (m *memMedia) Open(_ context.Context, address string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[address]
	if !ok {
		return nil, media.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}
