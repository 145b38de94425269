package service

import (
	"context"
	"errors"
	"io"

	"github.com/dukerupert/kinfolk/internal/database"
	"github.com/dukerupert/kinfolk/internal/media"
	"github.com/dukerupert/kinfolk/internal/model"
	"github.com/dukerupert/kinfolk/internal/store"
)

// ImageService serves stored image bytes.
type ImageService struct {
	images *store.ImageStore
	media  media.Store
}

func NewImageService(db database.DBTX, m media.Store) *ImageService {
	return &ImageService{images: store.NewImageStore(db), media: m}
}

// Open returns the image row and a reader over its contents. Images kept by
// a different backend than the configured one, or whose bytes are gone,
// report NotFoundError.
func (s *ImageService) Open(ctx context.Context, id int64) (*model.Image, io.ReadCloser, error) {
	img, err := s.images.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if img == nil || img.Store != s.media.Name() {
		return nil, nil, notFound(KindImage, id)
	}
	rc, err := s.media.Open(ctx, img.Address)
	if errors.Is(err, media.ErrNotFound) {
		return nil, nil, notFound(KindImage, id)
	}
	if err != nil {
		return nil, nil, err
	}
	return img, rc, nil
}
