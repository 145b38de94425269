package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/kinfolk/internal/service"
	ws "github.com/dukerupert/kinfolk/internal/websocket"
)

var errInvalidID = errors.New("invalid id")

// Publisher receives change events once a request's transaction commits.
type Publisher interface {
	Publish(ws.Event)
}

// parseIDParam reads the {id} path value, falling back to the ?id= query
// parameter used by the legacy update routes.
func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	if idStr == "" {
		idStr = r.URL.Query().Get("id")
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps err onto a response. Missing entities become 404; anything
// else is logged and reported as a 500 carrying msg.
func writeError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	var nf *service.NotFoundError
	if errors.As(err, &nf) {
		writeErrorMessage(w, http.StatusNotFound, fmt.Sprintf("%s with that id does not exist", nf.Kind))
		return
	}
	logger.Error(msg, "error", err)
	writeErrorMessage(w, http.StatusInternalServerError, msg)
}

// writeNotFound reports an absent entity looked up by id.
func writeNotFound(w http.ResponseWriter, kind string) {
	writeErrorMessage(w, http.StatusNotFound, fmt.Sprintf("%s with that id does not exist", kind))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}
