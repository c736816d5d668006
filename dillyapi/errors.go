// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Repository sentinel errors. The service maps them to HTTP errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrLimitReached  = errors.New("collection limit reached")
	ErrEmailTaken    = errors.New("email already registered")
	ErrInvalidID     = errors.New("invalid id in request")
	ErrEmptyTemplate = errors.New("no template saved")
)

// HTTPError is a user-facing failure with the status it should be reported under
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func badRequest(message string) *HTTPError {
	return &HTTPError{Status: http.StatusBadRequest, Message: message}
}

func notFound(message string) *HTTPError {
	return &HTTPError{Status: http.StatusNotFound, Message: message}
}

func unauthorized(message string) *HTTPError {
	return &HTTPError{Status: http.StatusUnauthorized, Message: message}
}

func conflict(message string) *HTTPError {
	return &HTTPError{Status: http.StatusConflict, Message: message}
}
