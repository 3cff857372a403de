// Package handlers provides the JSON modules mounted by the web service router.
//
// Every module only depends on the narrow set of operations it serves, so that they can be
// tested against in memory fakes.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/inmobiliaria/backoffice/internal/accounting"
	"github.com/inmobiliaria/backoffice/internal/common/validate"
	"github.com/inmobiliaria/backoffice/internal/contracts"
	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/mailer"
	"github.com/inmobiliaria/backoffice/internal/webservice/middleware"
)

// maxBodyBytes caps the size of the JSON payloads.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

// statusOf maps the errors of the services to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, validate.ErrInvalid),
		errors.Is(err, database.ErrInvalid),
		errors.Is(err, mailer.ErrNoRecipient):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrConflict),
		errors.Is(err, database.ErrReferenced),
		errors.Is(err, accounting.ErrLocked),
		errors.Is(err, accounting.ErrInvalidTransition),
		errors.Is(err, accounting.ErrReceiptSent),
		errors.Is(err, contracts.ErrTerminated),
		errors.Is(err, mailer.ErrDisabled):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Could not write response", "req_id", middleware.RequestID(r.Context()), "err", err)
	}
}

// writeError answers with the status of err. Internal errors are logged and hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "req_id", middleware.RequestID(r.Context()), "path", r.URL.Path, "err", err)
		msg = http.StatusText(status)
	} else {
		slog.Debug("Request rejected", "req_id", middleware.RequestID(r.Context()), "status", status, "err", err)
	}
	writeJSON(w, r, status, errorResponse{Error: msg})
}

// readJSON decodes the body of r into v, refusing unknown fields and trailing data.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return validate.Errorf("invalid JSON body: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return validate.Errorf("invalid JSON body: unexpected data after the object")
	}
	return nil
}

// pathID returns the id route variable called name.
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s %q", database.ErrNotFound, name, raw)
	}
	return id, nil
}

// queryID returns the optional id query parameter called name, 0 when absent.
func queryID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, validate.Errorf("%s must be a positive integer", name)
	}
	return id, nil
}

// queryBool returns the optional boolean query parameter called name.
func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, validate.Errorf("%s must be a boolean", name)
	}
	return b, nil
}

// list makes sure empty listings are encoded as [].
func list[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
