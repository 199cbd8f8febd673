// Package render writes JSON responses and maps service errors to statuses.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/lineaapp/linea/internal/validation"
)

// MaxBodySize caps JSON request bodies. Media uploads use their own limit.
const MaxBodySize = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("render json failed", "error", err)
	}
}

func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorBody{Error: message})
}

// ValidationError writes 422 with the per-field messages.
func ValidationError(w http.ResponseWriter, err *validation.Error) {
	JSON(w, http.StatusUnprocessableEntity, err)
}

// Mapping pairs a sentinel error with the response it produces.
type Mapping struct {
	Err     error
	Status  int
	Message string
}

// FromError writes the first mapping matching err, a validation error as
// 422, and anything else as a logged 500.
func FromError(w http.ResponseWriter, r *http.Request, err error, mappings ...Mapping) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		ValidationError(w, verr)
		return
	}

	for _, m := range mappings {
		if errors.Is(err, m.Err) {
			msg := m.Message
			if msg == "" {
				msg = m.Err.Error()
			}
			Error(w, m.Status, msg)
			return
		}
	}

	slog.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
	Error(w, http.StatusInternalServerError, "internal server error")
}

// Decode reads a JSON body into v, rejecting unknown fields and trailing data.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &validation.Error{Message: fmt.Sprintf("request body must not exceed %d bytes", maxErr.Limit)}
		}
		return &validation.Error{Message: "invalid JSON body: " + err.Error()}
	}

	if dec.Decode(&struct{}{}) != io.EOF {
		return &validation.Error{Message: "request body must contain a single JSON object"}
	}
	return nil
}
