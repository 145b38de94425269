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

type HouseholdHandler struct {
	db        *sql.DB
	media     media.Store
	events    Publisher
	maxUpload int64
	logger    *slog.Logger
}

func NewHouseholdHandler(db *sql.DB, m media.Store, events Publisher, maxUpload int64, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{db: db, media: m, events: events, maxUpload: maxUpload, logger: logger}
}

func (h *HouseholdHandler) List(w http.ResponseWriter, r *http.Request) {
	var households []model.DisplayHousehold
	err := database.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		var err error
		households, err = service.NewHouseholdService(tx, h.media).GetAll(r.Context())
		return err
	})
	if err != nil {
		writeError(w, h.logger, "failed to list households", err)
		return
	}
	writeJSON(w, http.StatusOK, households)
}

func (h *HouseholdHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var household *model.DisplayHousehold
	err = database.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		var err error
		household, err = service.NewHouseholdService(tx, h.media).GetByID(r.Context(), id)
		return err
	})
	if err != nil {
		writeError(w, h.logger, "failed to get household", err)
		return
	}
	if household == nil {
		writeNotFound(w, service.KindHousehold)
		return
	}
	writeJSON(w, http.StatusOK, household)
}

func (h *HouseholdHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateHousehold
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.LeaderID <= 0 || req.AddressID <= 0 {
		writeErrorMessage(w, http.StatusBadRequest, "leader_id and address_id are required")
		return
	}

	var household *model.DisplayHousehold
	err := database.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		var err error
		household, err = service.NewHouseholdService(tx, h.media).Create(r.Context(), req)
		return err
	})
	if err != nil {
		writeError(w, h.logger, "failed to create household", err)
		return
	}

	h.events.Publish(ws.HouseholdCreated(household.ID))
	writeJSON(w, http.StatusCreated, household)
}

func (h *HouseholdHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var images []model.DisplayImage
	err = database.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		var err error
		images, err = service.NewHouseholdService(tx, h.media).GetImages(r.Context(), id)
		return err
	})
	if err != nil {
		writeError(w, h.logger, "failed to list household images", err)
		return
	}
	writeJSON(w, http.StatusOK, images)
}

// AddImage accepts a multipart "file" part with an optional "description".
func (h *HouseholdHandler) AddImage(w http.ResponseWriter, r *http.Request) {
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
	description := strings.TrimSpace(r.FormValue("description"))

	var household *model.DisplayHousehold
	err = database.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		var err error
		household, err = service.NewHouseholdService(tx, h.media).AddImage(r.Context(), id, up.filename, description, up.file)
		return err
	})
	if err != nil {
		writeError(w, h.logger, "failed to add household image", err)
		return
	}

	// Images load in insertion order, so the new one is last.
	added := household.Images[len(household.Images)-1]
	h.logger.Info("household image added",
		"household_id", household.ID,
		"image_id", added.ID,
		"content_type", up.contentType,
		"user_id", auth.UserID(r.Context()),
	)
	h.events.Publish(ws.HouseholdImageAdded(household.ID, added.ID))
	writeJSON(w, http.StatusCreated, household)
}

func (h *HouseholdHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAddress
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Street = strings.TrimSpace(req.Street)
	req.City = strings.TrimSpace(req.City)
	if req.Street == "" || req.City == "" {
		writeErrorMessage(w, http.StatusBadRequest, "street and city are required")
		return
	}

	var addr *model.Address
	err := database.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		var err error
		addr, err = service.NewHouseholdService(tx, h.media).CreateAddress(r.Context(), req)
		return err
	})
	if err != nil {
		writeError(w, h.logger, "failed to create address", err)
		return
	}
	writeJSON(w, http.StatusCreated, addr)
}

func (h *HouseholdHandler) GetAddress(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var addr *model.Address
	err = database.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		var err error
		addr, err = service.NewHouseholdService(tx, h.media).GetAddress(r.Context(), id)
		return err
	})
	if err != nil {
		writeError(w, h.logger, "failed to get address", err)
		return
	}
	if addr == nil {
		writeNotFound(w, service.KindAddress)
		return
	}
	writeJSON(w, http.StatusOK, addr)
}
