package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

type httpError struct {
	cause  error
	status int
}

func (e *httpError) Error() string {
	return e.cause.Error()
}

func (e *httpError) Unwrap() error {
	return e.cause
}

// HTTPError creates an error carrying an HTTP status code.
func HTTPError(cause error, status int) error {
	return &httpError{
		cause:  cause,
		status: status,
	}
}

// BadRequest wraps cause as a 400 response.
func BadRequest(cause error) error {
	return HTTPError(cause, http.StatusBadRequest)
}

// NotFound wraps cause as a 404 response.
func NotFound(cause error) error {
	return HTTPError(cause, http.StatusNotFound)
}

// HandlerFunc is like http.HandlerFunc but returns an error.
// An httpError responds with its status, any other error with 500.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// WrapHandlerFunc converts a HandlerFunc to an http.HandlerFunc.
func WrapHandlerFunc(f HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err == nil {
			return
		}
		var he *httpError
		if errors.As(err, &he) {
			writeError(w, he.cause, he.status)
			return
		}
		writeError(w, err, http.StatusInternalServerError)
	}
}

// JSONContentType is the content type of every API response.
const JSONContentType = "application/json; charset=utf-8"

// ParseJSON decodes a JSON object in strict mode.
func ParseJSON(r io.Reader, v any) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// MaxBodyBytes bounds every request body.
const MaxBodyBytes = 1 << 20

// ParseRequest decodes the body of r into v, reading at most MaxBodyBytes.
// Oversized bodies are answered with 413, malformed ones with 400.
func ParseRequest(w http.ResponseWriter, r *http.Request, v any) error {
	if err := ParseJSON(http.MaxBytesReader(w, r.Body, MaxBodyBytes), v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return HTTPError(fmt.Errorf("request body exceeds %d bytes", MaxBodyBytes), http.StatusRequestEntityTooLarge)
		}
		return BadRequest(fmt.Errorf("decode request: %w", err))
	}
	return nil
}

// WriteJSON responds with obj encoded as JSON.
func WriteJSON(w http.ResponseWriter, obj any) error {
	w.Header().Set("Content-Type", JSONContentType)
	return json.NewEncoder(w).Encode(obj)
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, cause error, status int) {
	w.Header().Set("Content-Type", JSONContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: cause.Error()})
}
