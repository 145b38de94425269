package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const uploadField = "file"

// upload is an image file received as multipart form data.
type upload struct {
	file        multipart.File
	filename    string
	contentType string
}

func (u *upload) Close() error { return u.file.Close() }

// readImageUpload parses a multipart body of at most maxBytes and returns the
// "file" part. It writes the error response itself and returns nil on failure.
func readImageUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) *upload {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorMessage(w, http.StatusRequestEntityTooLarge, "file too large")
			return nil
		}
		writeErrorMessage(w, http.StatusBadRequest, "expected multipart form data")
		return nil
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "file is required")
		return nil
	}

	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		file.Close()
		writeErrorMessage(w, http.StatusBadRequest, "could not read file")
		return nil
	}
	contentType := http.DetectContentType(sniff[:n])
	if !strings.HasPrefix(contentType, "image/") {
		file.Close()
		writeErrorMessage(w, http.StatusUnsupportedMediaType, "file must be an image")
		return nil
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		writeErrorMessage(w, http.StatusBadRequest, "could not read file")
		return nil
	}

	return &upload{file: file, filename: header.Filename, contentType: contentType}
}
