// Package jsonutil writes JSON API responses and reads JSON request bodies.
//
// Every handler reports failures through WriteError so clients always see
// the same {"error","kind","field"} shape.
package jsonutil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mysre-platform/mysre/internal/app/system/apperr"
)

// MaxBodyBytes caps request bodies read by Decode.
const MaxBodyBytes = 1 << 20

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// OK writes a 200 OK JSON response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 Created JSON response.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// WriteError writes err using the status of its apperr kind.
// The body is {"error": message, "kind": kind} plus "field" for validation
// errors. Errors that are not *apperr.Error are reported as a generic
// persistence failure so internal details never reach the client.
func WriteError(w http.ResponseWriter, err error) {
	body := map[string]string{"kind": string(apperr.KindOf(err))}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		body["error"] = ae.Error()
		if ae.Field != "" {
			body["field"] = ae.Field
		}
	} else {
		body["error"] = "internal error"
	}
	JSON(w, apperr.Status(err), body)
}

// Decode reads at most MaxBodyBytes of JSON from the request body into v.
func Decode(r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxBodyBytes)).Decode(v)
}
