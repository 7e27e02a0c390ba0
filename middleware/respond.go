package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	userguard "github.com/identware/userguard"
	"github.com/identware/userguard/secure"
	"github.com/identware/userguard/validate"
)

// Envelope is the uniform JSON body of every response, success or failure.
type Envelope struct {
	Result bool       `json:"result"`
	Data   any        `json:"data"`
	Error  *ErrorBody `json:"error,omitempty"`
	Status int        `json:"status,omitempty"`
}

// ErrorBody carries the failure detail inside an [Envelope].
type ErrorBody struct {
	Message string            `json:"message"`
	Code    int               `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// WriteJSON emits a success envelope.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Result: true, Data: data, Status: status})
}

// WriteError translates err into status code and message and emits the
// error envelope. It is the only place errors become HTTP responses;
// callers never pick status codes themselves.
func WriteError(w http.ResponseWriter, err error) {
	status, message, fields := translate(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		Result: false,
		Error:  &ErrorBody{Message: message, Code: status, Fields: fields},
		Status: status,
	})
}

func translate(err error) (int, string, map[string]string) {
	var fieldErrs validate.FieldErrors
	if errors.As(err, &fieldErrs) {
		return http.StatusForbidden, "input validation failed", fieldErrs
	}

	switch {
	// Security pipeline.
	case errors.Is(err, secure.ErrInjectionDetected):
		return http.StatusBadRequest, secure.ErrInjectionDetected.Error(), nil
	case errors.Is(err, secure.ErrInputTooLarge):
		return http.StatusBadRequest, err.Error(), nil
	case errors.Is(err, secure.ErrInputInvalid):
		return http.StatusBadRequest, err.Error(), nil
	case errors.Is(err, secure.ErrRateLimited):
		return http.StatusTooManyRequests, err.Error(), nil
	case errors.Is(err, secure.ErrIPBlocked), errors.Is(err, secure.ErrMethodBlocked):
		return http.StatusForbidden, err.Error(), nil

	// Tokens and authorization.
	case errors.Is(err, userguard.ErrTokenMissing),
		errors.Is(err, userguard.ErrTokenInvalid),
		errors.Is(err, userguard.ErrTokenKind),
		errors.Is(err, userguard.ErrTokenRevoked),
		errors.Is(err, userguard.ErrPermissionDenied):
		return http.StatusForbidden, err.Error(), nil

	// Account state.
	case errors.Is(err, userguard.ErrAccountUnknown),
		errors.Is(err, userguard.ErrAccountInactive),
		errors.Is(err, userguard.ErrAccountLocked),
		errors.Is(err, userguard.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error(), nil

	case errors.Is(err, userguard.ErrIdentityExists):
		return http.StatusConflict, err.Error(), nil
	case errors.Is(err, userguard.ErrOTPInvalid), errors.Is(err, userguard.ErrOTPPending):
		return http.StatusForbidden, err.Error(), nil
	case errors.Is(err, userguard.ErrRoleUnknown):
		return http.StatusNotFound, err.Error(), nil

	case errors.Is(err, ErrMalformedBody):
		return http.StatusBadRequest, err.Error(), nil
	}

	// Backend trouble and everything unexpected stay opaque.
	return http.StatusInternalServerError, "internal error", nil
}

// ErrMalformedBody is returned by handlers that fail to decode a request
// payload.
var ErrMalformedBody = errors.New("malformed request body")
