// Package httputil provides JSON response helpers and the outbound HTTP
// client used for third-party integrations.
package httputil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/campuslink/platform/internal/errors"
)

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteErrorResponse writes a structured error body.
func WriteErrorResponse(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	WriteJSON(w, status, ErrorResponse{Code: code, Message: message, Details: details})
}

// WriteError maps err onto the ServiceError taxonomy and writes it. Unknown
// errors become opaque internal errors.
func WriteError(w http.ResponseWriter, err error) {
	if svcErr := errors.GetServiceError(err); svcErr != nil {
		WriteErrorResponse(w, svcErr.HTTPStatus, string(svcErr.Code), svcErr.Message, svcErr.Details)
		return
	}
	WriteErrorResponse(w, http.StatusInternalServerError, string(errors.CodeInternal), "internal error", nil)
}

// Unauthorized writes a 401 with an optional message.
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "authentication required"
	}
	WriteErrorResponse(w, http.StatusUnauthorized, string(errors.CodeUnauthorized), message, nil)
}

const maxBodyBytes = 1 << 20

// DecodeJSON decodes a request body into dst, rejecting unknown fields and
// oversized payloads.
func DecodeJSON(body io.Reader, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
