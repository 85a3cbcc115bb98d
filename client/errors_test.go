package client

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func Test_errorFromEnvelope(t *testing.T) {
	tests := []struct {
		name string
		code int
		env  envelope
		want error
	}{
		{
			name: "unauthenticated",
			code: http.StatusUnauthorized,
			env:  envelope{Message: "user not authenticated", Data: []byte(`{"redirect": "/login"}`)},
			want: &AuthError{Code: http.StatusUnauthorized, Message: "user not authenticated", Redirect: "/login"},
		},
		{
			name: "fields",
			code: http.StatusBadRequest,
			env:  envelope{Message: "validation failed", Data: []byte(`{"phone": "invalid phone number"}`)},
			want: &ValidationError{Message: "validation failed", Fields: map[string]string{"phone": "invalid phone number"}},
		},
		{
			name: "not found",
			code: http.StatusNotFound,
			env:  envelope{Message: "student not found"},
			want: &NotFoundError{Message: "student not found"},
		},
		{
			name: "conflict",
			code: http.StatusConflict,
			env:  envelope{Message: "schedule is full"},
			want: &ConflictError{Message: "schedule is full"},
		},
		{
			name: "server",
			code: http.StatusBadGateway,
			want: &ServerError{Code: http.StatusBadGateway, Message: "Bad Gateway"},
		},
		{
			name: "error status in a 2xx",
			code: http.StatusOK,
			env:  envelope{Status: "error", Message: "boom"},
			want: &ServerError{Code: http.StatusInternalServerError, Message: "boom"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorFromEnvelope(tt.code, tt.env))
		})
	}
}

func Test_userMessage(t *testing.T) {
	srvErr := &ServerError{Code: http.StatusInternalServerError, Message: "pq: relation does not exist"}
	tests := []struct {
		name  string
		err   error
		debug bool
		want  string
	}{
		{name: "validation", err: &ValidationError{Message: "validation failed"}, want: "validation failed"},
		{name: "wrapped not found", err: errors.Wrap(&NotFoundError{Message: "exam not found"}, "fetching"), want: "exam not found"},
		{name: "network", err: &NetworkError{Op: "GET /", Err: errors.New("refused")}, want: "Network error, check your connection and try again."},
		{name: "server hidden", err: srvErr, want: msgUnexpected},
		{name: "server in debug", err: srvErr, debug: true, want: "pq: relation does not exist"},
		{name: "unknown", err: errors.New("decoding response data"), want: msgUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, userMessage(tt.err, tt.debug))
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Message: "validation failed", Fields: map[string]string{"score": "too high", "date": "required"}}
	assert.Equal(t, "validation failed (date: required; score: too high)", err.Error())
}
