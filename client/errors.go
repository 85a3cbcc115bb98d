package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrInFlight is returned when a mutation starts while another one of the same resource is running.
	ErrInFlight = errors.New("another operation is in progress")
	// ErrClosed is returned by workflows used after Close; their late responses are dropped.
	ErrClosed = errors.New("workflow closed")
	// ErrConfirmationSettled is returned when a delete confirmation was already confirmed or cancelled.
	ErrConfirmationSettled = errors.New("delete already confirmed or cancelled")
)

const msgUnexpected = "An unexpected error occurred, please try again."

// ValidationError is field-scoped; the user recovers by correcting the fields.
type ValidationError struct {
	Message string
	Fields  map[string]string // JSON field name -> message
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Fields[name]
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

// AuthError means the session is missing, expired or of the wrong role; Redirect says where to go.
type AuthError struct {
	Code     int
	Message  string
	Redirect string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

// NotFoundError means the entity vanished between listing and acting on it.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// ConflictError is a request refused by the current server state, e.g. a full schedule.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NetworkError is a transport failure. It is never retried automatically.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

type ServerError struct {
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

// errorFromEnvelope maps a failed response to the error taxonomy.
func errorFromEnvelope(code int, env envelope) error {
	msg := env.Message
	if msg == "" {
		msg = http.StatusText(code)
	}

	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		var data struct {
			Redirect string `json:"redirect"`
		}
		_ = json.Unmarshal(env.Data, &data)
		return &AuthError{Code: code, Message: msg, Redirect: data.Redirect}
	case code == http.StatusNotFound:
		return &NotFoundError{Message: msg}
	case code == http.StatusConflict:
		return &ConflictError{Message: msg}
	case code >= http.StatusBadRequest && code < http.StatusInternalServerError:
		var fields map[string]string
		_ = json.Unmarshal(env.Data, &fields)
		return &ValidationError{Message: msg, Fields: fields}
	case code >= 200 && code <= 299: // non-success status in a 2xx response
		return &ServerError{Code: http.StatusInternalServerError, Message: msg}
	default:
		return &ServerError{Code: code, Message: msg}
	}
}

// userMessage is the notification text of err; server messages stay hidden unless debug.
func userMessage(err error, debug bool) string {
	var (
		vErr   *ValidationError
		aErr   *AuthError
		nErr   *NotFoundError
		cErr   *ConflictError
		sErr   *ServerError
		netErr *NetworkError
	)
	switch {
	case errors.As(err, &vErr):
		return vErr.Message
	case errors.As(err, &aErr):
		return aErr.Message
	case errors.As(err, &nErr):
		return nErr.Message
	case errors.As(err, &cErr):
		return cErr.Message
	case errors.As(err, &netErr):
		return "Network error, check your connection and try again."
	case errors.As(err, &sErr) && debug:
		return sErr.Message
	case debug:
		return err.Error()
	default:
		return msgUnexpected
	}
}

func IsNotFound(err error) bool {
	var nErr *NotFoundError
	return errors.As(err, &nErr)
}

func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

func IsAuth(err error) bool {
	var aErr *AuthError
	return errors.As(err, &aErr)
}
