package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"envelope/internal/core"
)

const maxBodyBytes = 1 << 20 // 1 MiB

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeServiceError maps the engine's error kinds onto HTTP statuses.
// Untyped errors are 500s and their details stay out of the response.
func writeServiceError(w http.ResponseWriter, err error) {
	switch core.KindOf(err) {
	case core.KindValidation:
		writeError(w, http.StatusBadRequest, err.Error())
	case core.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case core.KindConflict:
		writeError(w, http.StatusConflict, err.Error())
	case core.KindPrecondition:
		writeError(w, http.StatusPreconditionFailed, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a size-capped JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return core.Validationf("request body exceeds %d bytes", maxErr.Limit)
		}
		return core.Validationf("invalid request body: %v", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return core.Validationf("request body must contain a single JSON object")
	}
	return nil
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Validationf("invalid id %q", raw)
	}
	return id, nil
}

// queryPeriod reads month and year query parameters, defaulting to the
// current calendar month.
func queryPeriod(r *http.Request) (month, year int, err error) {
	now := time.Now()
	month, year = int(now.Month()), now.Year()

	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		month, err = strconv.Atoi(v)
		if err != nil {
			return 0, 0, core.Validationf("invalid month %q", v)
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		year, err = strconv.Atoi(v)
		if err != nil {
			return 0, 0, core.Validationf("invalid year %q", v)
		}
	}
	return month, year, nil
}
