// Package http serves the JSON API.
//
// This file implements a small builder for JSON responses and the mapping
// from domain errors to status codes.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"pfm/internal/core"
	"pfm/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A nil body writes
// only the status line.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrAlreadyMember),
		errors.Is(err, core.ErrInvitationPending),
		errors.Is(err, core.ErrInvitationClosed),
		errors.Is(err, services.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyItem),
		errors.Is(err, core.ErrItemTooLong),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyGroupName),
		errors.Is(err, core.ErrGroupNameTooLong),
		errors.Is(err, core.ErrInvalidEmail):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrInvalidScope),
		errors.Is(err, core.ErrMissingOwner):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrParserUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ServiceError builds the response for err. Server-side failures get a
// generic message so internals do not leak to callers.
func ServiceError(err error) *JSONResponseBuilder {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		return ErrorResponse(status, http.StatusText(status))
	}
	return ErrorResponse(status, err.Error())
}
