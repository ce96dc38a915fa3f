// Package httpapi wires every service onto the HTTP surface: one
// gorilla/mux router, JWT bearer-token middleware, and one handler group
// per resource. Instrument-facing handlers pass the X-Instrument-Token
// header straight to the instrument integration services.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.InvalidInput("malformed request body")
	}
	return nil
}

func respond(w http.ResponseWriter, status int, v interface{}) {
	writeJSON(w, status, v)
}

func parseTimestamp(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}

func pageFromQuery(r *http.Request) repository.Page {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 50
	}
	return repository.Page{Limit: limit, Offset: offset}
}
