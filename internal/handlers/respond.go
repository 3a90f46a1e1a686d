// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON API: public post reads, admin post
// management and token authentication. Every response uses the same
// envelope: {"success", "message", "data"} on success and
// {"success", "message", "errors"} on failure.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type successBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type errorBody struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Errors  validationErrors `json:"errors"`
}

// encodeSuccess renders the success envelope. Public handlers cache the
// result as-is.
func encodeSuccess(message string, data any) ([]byte, error) {
	return json.Marshal(successBody{Success: true, Message: message, Data: data})
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// respond writes a success envelope with the given status.
func respond(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	body, err := encodeSuccess(message, data)
	if err != nil {
		serverError(w, r, "encode response failed", err)
		return
	}
	writeBody(w, status, body)
}

// respondError writes a failure envelope. errs may be nil.
func respondError(w http.ResponseWriter, status int, message string, errs validationErrors) {
	if errs == nil {
		errs = validationErrors{}
	}
	body, _ := json.Marshal(errorBody{Success: false, Message: message, Errors: errs})
	writeBody(w, status, body)
}

// serverError logs err with request context and writes a generic 500.
func serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.Error(msg, "error", err, "method", r.Method, "path", r.URL.Path)
	respondError(w, http.StatusInternalServerError, "Server Error", nil)
}

// decodeJSON reads a JSON request body into dst. An empty body leaves dst
// untouched so validation reports the missing fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, "Request body too large.", nil)
		return false
	}
	respondError(w, http.StatusBadRequest, "Malformed JSON body.", nil)
	return false
}

// pathID parses the {id} URL parameter. Malformed IDs cannot match a post,
// so callers answer them like missing posts.
func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// NotFound answers unknown routes with the failure envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "Not Found.", nil)
}

// MethodNotAllowed answers known routes called with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusMethodNotAllowed, "Method Not Allowed.", nil)
}
