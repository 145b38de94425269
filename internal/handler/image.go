package handler

import (
	"bufio"
	"database/sql"
	"io"
	"log/slog"
	"net/http"

	"github.com/dukerupert/kinfolk/internal/database"
	"github.com/dukerupert/kinfolk/internal/media"
	"github.com/dukerupert/kinfolk/internal/model"
	"github.com/dukerupert/kinfolk/internal/service"
)

type ImageHandler struct {
	db     *sql.DB
	media  media.Store
	logger *slog.Logger
}

func NewImageHandler(db *sql.DB, m media.Store, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{db: db, media: m, logger: logger}
}

// Serve streams the stored bytes of an image.
func (h *ImageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var (
		img *model.Image
		rc  io.ReadCloser
	)
	err = database.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		var err error
		img, rc, err = service.NewImageService(tx, h.media).Open(r.Context(), id)
		return err
	})
	if err != nil {
		writeError(w, h.logger, "failed to open image", err)
		return
	}
	defer rc.Close()

	br := bufio.NewReaderSize(rc, 512)
	head, _ := br.Peek(512)
	w.Header().Set("Content-Type", http.DetectContentType(head))
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Header().Set("Last-Modified", img.Created.UTC().Format(http.TimeFormat))
	if _, err := io.Copy(w, br); err != nil {
		h.logger.Warn("stream image", "image_id", id, "error", err)
	}
}
