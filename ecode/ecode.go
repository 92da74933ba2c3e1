// Package ecode defines standardized business error codes for API responses
// and maps them onto HTTP statuses.
//
// Codes follow a simple numbering scheme:
//   - 0: success
//   - -400..-499: request/validation errors
//   - -500+: server-side errors
package ecode

import "net/http"

const (
	OK = 0

	// Request errors
	RequestErr   = -400 // malformed or invalid request
	Validation   = -401 // field-level validation failure
	AccessDenied = -403 // caller is not the owner of the resource
	NotFound     = -404 // resource (or any exportable content) absent
	Timeout      = -408 // a collaborator call exceeded its deadline

	// Resource errors
	ResourceExceeded  = -413 // payload/memory limits exceeded
	ConversionFailure = -422 // content conversion failed
	RateLimited       = -429 // concurrency gate full or work already in flight

	// Server errors
	ServerErr          = -500
	ServiceUnavailable = -503
)

var messages = map[int]string{
	OK:                 "ok",
	RequestErr:         "Invalid request",
	Validation:         "Validation failed",
	AccessDenied:       "Access denied",
	NotFound:           "Resource not found",
	Timeout:            "Operation timed out",
	ResourceExceeded:   "Payload too large",
	ConversionFailure:  "Content conversion failed",
	RateLimited:        "Too many concurrent requests",
	ServerErr:          "Internal server error",
	ServiceUnavailable: "Service unavailable",
}

var httpStatuses = map[int]int{
	OK:                 http.StatusOK,
	RequestErr:         http.StatusBadRequest,
	Validation:         http.StatusBadRequest,
	AccessDenied:       http.StatusForbidden,
	NotFound:           http.StatusNotFound,
	Timeout:            http.StatusRequestTimeout,
	ResourceExceeded:   http.StatusRequestEntityTooLarge,
	ConversionFailure:  http.StatusUnprocessableEntity,
	RateLimited:        http.StatusTooManyRequests,
	ServerErr:          http.StatusInternalServerError,
	ServiceUnavailable: http.StatusServiceUnavailable,
}

// Text returns the human-readable message for a code.
func Text(code int) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[ServerErr]
}

// ToHTTPStatus maps a business code to an HTTP status code.
func ToHTTPStatus(code int) int {
	if status, ok := httpStatuses[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Register registers a custom error code with its message and HTTP status.
// Registering an existing code overwrites it.
func Register(code int, message string, httpStatus int) {
	messages[code] = message
	httpStatuses[code] = httpStatus
}
