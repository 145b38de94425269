package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/kinfolk/internal/auth"
	"github.com/dukerupert/kinfolk/internal/database"
	"github.com/dukerupert/kinfolk/internal/media"
	"github.com/dukerupert/kinfolk/internal/model"
	"github.com/dukerupert/kinfolk/internal/service"
	ws "github.com/dukerupert/kinfolk/internal/websocket"
)

type PersonHandler struct {
	db        *sql.DB
	media     media.Store
	events    Publisher
	maxUpload int64
	logger    *slog.Logger
}

func NewPersonHandler(db *sql.DB, m media.Store, events Publisher, maxUpload int64, logger *slog.Logger) *PersonHandler {
	return &PersonHandler{db: db, media: m, events: events, maxUpload: maxUpload, logger: logger}
}

func (h *PersonHandler) List(w http.ResponseWriter, r *http.Request) {
	var people []model.DisplayPerson
	err := database.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		var err error
		people, err = service.NewPersonService(tx, h.media).GetAll(r.Context())
		return err
	})
	if err != nil {
		writeError(w, h.logger, "failed to list people", err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}

func (h *PersonHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var person *model.DisplayPerson
	err = database.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		var err error
		person, err = service.NewPersonService(tx, h.media).GetByID(r.Context(), id)
		return err
	})
	if err != nil {
		writeError(w, h.logger, "failed to get person", err)
		return
	}
	if person == nil {
		writeNotFound(w, service.KindPerson)
		return
	}
	writeJSON(w, http.StatusOK, person)
}

func (h *PersonHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreatePerson
	if !decodeJSON(w, r, &req) {
		return
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	if req.FirstName == "" {
		writeErrorMessage(w, http.StatusBadRequest, "first_name is required")
		return
	}
	if req.Email != "" && !strings.Contains(req.Email, "@") {
		writeErrorMessage(w, http.StatusBadRequest, "email is invalid")
		return
	}

	var person *model.DisplayPerson
	err := database.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		var err error
		person, err = service.NewPersonService(tx, h.media).Create(r.Context(), req)
		return err
	})
	if err != nil {
		writeError(w, h.logger, "failed to create person", err)
		return
	}

	h.events.Publish(ws.PersonCreated(person.ID))
	writeJSON(w, http.StatusCreated, person)
}

// Update applies a partial update. The id comes from the path, or from ?id=
// on the legacy PUT /person/ route.
func (h *PersonHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var patch model.UpdatePerson
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.IsEmpty() {
		writeErrorMessage(w, http.StatusBadRequest, "no fields to update")
		return
	}
	if patch.FirstName != nil && strings.TrimSpace(*patch.FirstName) == "" {
		writeErrorMessage(w, http.StatusBadRequest, "first_name cannot be empty")
		return
	}

	var person *model.DisplayPerson
	err = database.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		var err error
		person, err = service.NewPersonService(tx, h.media).Update(r.Context(), id, patch)
		return err
	})
	if err != nil {
		writeError(w, h.logger, "failed to update person", err)
		return
	}

	h.events.Publish(ws.PersonUpdated(person.ID))
	writeJSON(w, http.StatusOK, person)
}

// GetProfileImage returns the person's current profile image.
func (h *PersonHandler) GetProfileImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var img *model.DisplayImage
	err = database.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		var err error
		img, err = service.NewPersonService(tx, h.media).GetProfileImage(r.Context(), id)
		return err
	})
	if err != nil {
		writeError(w, h.logger, "failed to get profile image", err)
		return
	}
	if img == nil {
		writeErrorMessage(w, http.StatusNotFound, "person has no profile image")
		return
	}
	writeJSON(w, http.StatusOK, img)
}

func (h *PersonHandler) ListProfileImages(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var images []model.DisplayImage
	err = database.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		var err error
		images, err = service.NewPersonService(tx, h.media).GetProfileImages(r.Context(), id)
		return err
	})
	if err != nil {
		writeError(w, h.logger, "failed to list profile images", err)
		return
	}
	writeJSON(w, http.StatusOK, images)
}

// UploadProfileImage accepts a multipart "file" part and makes it the
// person's profile image.
func (h *PersonHandler) UploadProfileImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	up := readImageUpload(w, r, h.maxUpload)
	if up == nil {
		return
	}
	defer up.Close()

	var result *model.DisplayPersonProfileImage
	err = database.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		var err error
		result, err = service.NewPersonService(tx, h.media).UploadProfileImage(r.Context(), id, up.filename, up.file)
		return err
	})
	if err != nil {
		writeError(w, h.logger, "failed to upload profile image", err)
		return
	}

	h.logger.Info("profile image uploaded",
		"person_id", id,
		"image_id", result.ProfileImage.ID,
		"content_type", up.contentType,
		"user_id", auth.UserID(r.Context()),
	)
	h.events.Publish(ws.ProfileImageUpdated(id, result.ProfileImage.ID))
	writeJSON(w, http.StatusOK, result)
}
