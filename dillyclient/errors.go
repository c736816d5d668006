// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// ErrOffline is returned without a network attempt when the platform reports no connectivity
var ErrOffline = errors.New("no internet connection")

// NetworkError is a transport-level failure: no connectivity, refused or dropped connection
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error on %s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a non-2xx response. Message is the server's error string when it sent JSON.
type APIError struct {
	Status  int
	Message string
	Payload json.RawMessage
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorKind is the coarse classification used for retry and reporting decisions
type ErrorKind int

const (
	KindUnexpected ErrorKind = iota
	KindNetwork
	KindTransient
	KindClient
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTransient:
		return "transient"
	case KindClient:
		return "client"
	default:
		return "unexpected"
	}
}

var retryableStatuses = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsRetryableStatus reports whether an HTTP status is worth retrying
func IsRetryableStatus(status int) bool {
	return retryableStatuses[status]
}

// Classify sorts err into network, transient server, client or unexpected failures
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnexpected
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindUnexpected
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if IsRetryableStatus(apiErr.Status) {
			return KindTransient
		}
		return KindClient
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return KindClient
	}
	if isNetworkFailure(err) {
		return KindNetwork
	}
	return KindUnexpected
}

// IsRetryable reports whether the request client should try again after err
func IsRetryable(err error) bool {
	switch Classify(err) {
	case KindNetwork, KindTransient:
		return true
	default:
		return false
	}
}

// IsNetworkError reports whether err is a connectivity failure
func IsNetworkError(err error) bool {
	return Classify(err) == KindNetwork
}

func isNetworkFailure(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "failed to fetch") ||
		strings.Contains(msg, "network") ||
		strings.Contains(msg, "connection")
}

// ValidationError is a local pre-flight rejection; no request was sent
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// errorMessage picks the user-facing text for err, falling back when err says nothing useful
func errorMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}
	if errors.Is(err, ErrOffline) {
		return "No internet connection"
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}
