package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/kinfolk/internal/database"
	"github.com/dukerupert/kinfolk/internal/model"
)

type ImageStore struct {
	db database.DBTX
}

func NewImageStore(db database.DBTX) *ImageStore {
	return &ImageStore{db: db}
}

func scanImage(scanner interface{ Scan(...any) error }) (*model.Image, error) {
	var img model.Image
	err := scanner.Scan(&img.ID, &img.Address, &img.Description, &img.Store, &img.Created)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

const imageCols = `id, address, description, store, created`

// Create inserts an image row. A zero Created is set to the current time.
func (s *ImageStore) Create(ctx context.Context, img model.Image) (*model.Image, error) {
	if img.Created.IsZero() {
		img.Created = time.Now().UTC()
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO images (address, description, store, created) VALUES (?, ?, ?, ?)`,
		img.Address, img.Description, img.Store, img.Created,
	)
	if err != nil {
		return nil, fmt.Errorf("insert image: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ImageStore) GetByID(ctx context.Context, id int64) (*model.Image, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+imageCols+` FROM images WHERE id = ?`, id)
	img, err := scanImage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get image: %w", err)
	}
	return img, nil
}
