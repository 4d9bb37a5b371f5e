// Package httputil provides JSON request/response helpers shared by the API
// handlers and middleware.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/morarasu-alexandru/nft-collection-manager/internal/errors"
)

// ErrorResponse is the wire shape of every failure returned by the API.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the failure class and a human-readable message. Store
// error internals never appear here.
type ErrorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteErrorResponse writes a structured error envelope.
func WriteErrorResponse(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	WriteJSON(w, status, ErrorResponse{Error: ErrorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

// WriteError translates err into the error envelope. Unclassified errors are
// reported as internal without leaking their message.
func WriteError(w http.ResponseWriter, err error) {
	se := errors.GetServiceError(err)
	if se == nil {
		se = errors.Internal("", err)
	}
	WriteErrorResponse(w, se.HTTPStatus, string(se.Code), se.Message, se.Details)
}

// BadRequest writes a validation failure.
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, errors.Validation(message))
}

// Unauthorized writes an authentication failure.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, errors.Unauthenticated(message))
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields.
// On failure it writes a validation error and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}
