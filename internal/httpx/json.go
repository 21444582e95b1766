// Package httpx holds the JSON and middleware plumbing shared by the
// authgate HTTP controllers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const maxBodyBytes = 1 << 20

type Message struct {
	Message string `json:"message"`
}

type validationBody struct {
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

// ValidationError lists offending fields by name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d field(s)", len(e.Fields))
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = msg
}

// OrNil returns nil when no field was added.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Decode reads a single JSON object from the request body into dst.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &ValidationError{Fields: map[string]string{"body": "request body is required"}}
		}
		return &ValidationError{Fields: map[string]string{"body": "malformed JSON"}}
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders validation errors as 422 and everything else with status.
func WriteError(w http.ResponseWriter, status int, err error) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		WriteJSON(w, http.StatusUnprocessableEntity, validationBody{
			Message: "Validation Failed",
			Details: vErr.Fields,
		})
		return
	}
	WriteJSON(w, status, Message{Message: err.Error()})
}

func NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusNotFound, Message{Message: "Not Found"})
	})
}

func MethodNotAllowed() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusMethodNotAllowed, Message{Message: "Method Not Allowed"})
	})
}
