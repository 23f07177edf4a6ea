package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"garment-portal-backend/internal/api"
	"garment-portal-backend/internal/identity"
)

type HTTPError = api.HTTPError

type ApiMessageResponse struct {
	Message string `json:"message"`
}

const maxBodyBytes = 1 << 20

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return api.WriteJSON(w, status, v)
}

func MethodHandler(
	w http.ResponseWriter,
	r *http.Request,
	allowed map[string]func(http.ResponseWriter, *http.Request) error,
) error {
	if handler, ok := allowed[r.Method]; ok {
		return handler(w, r)
	}
	return &HTTPError{
		StatusCode: http.StatusMethodNotAllowed,
		Message:    "Method not allowed.",
		ErrorLog:   fmt.Errorf("method %s not allowed on %s", r.Method, r.URL.Path),
	}
}

func decodeJSON(r *http.Request, v any, what string) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode %s request: %w", what, err),
		}
	}
	return nil
}

// callerIdentity reads the identity the session middleware attached.
func callerIdentity(r *http.Request) (identity.Identity, error) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		return identity.Identity{}, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "not signed in",
			ErrorLog:   errors.New("no identity on request context"),
		}
	}
	return id, nil
}

// pathParam returns the single segment following prefix, and the remainder.
func pathParam(path, prefix string) (string, string) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return "", ""
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func statusForCode(code string) int {
	switch code {
	case "validation_error":
		return http.StatusBadRequest
	case "unauthorized":
		return http.StatusUnauthorized
	case "forbidden":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// codedError converts a service error into an HTTPError. Internal errors
// keep their generic "failed to ..." message.
func codedError(code, message string, cause error) *HTTPError {
	status := statusForCode(code)

	var errorLog error
	if cause != nil {
		errorLog = fmt.Errorf("%s: %w", message, cause)
	} else {
		errorLog = errors.New(message)
	}

	if status == http.StatusInternalServerError && message == "" {
		message = "Internal server error"
	}
	return &HTTPError{
		StatusCode: status,
		Message:    message,
		ErrorLog:   errorLog,
	}
}

func unexpectedError(scope string, err error) *HTTPError {
	return &HTTPError{
		StatusCode: http.StatusInternalServerError,
		Message:    "Internal server error",
		ErrorLog:   fmt.Errorf("%s: %w", scope, err),
	}
}
