// Package resp writes the JSON response envelope shared by all HTTP
// handlers.
package resp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nibernar/project-service/ecode"
	"github.com/nibernar/project-service/export"
)

// Exception represents the response structure.
type Exception struct {
	Status  int    `json:"status,omitempty"`  // HTTP status
	Code    int    `json:"code,omitempty"`    // Business code
	Message string `json:"message,omitempty"` // Message
	Errors  any    `json:"errors,omitempty"`  // Validation errors
	Data    any    `json:"data,omitempty"`    // Response data
}

// Success writes a 200 response with the given payload.
func Success(w http.ResponseWriter, data ...any) {
	WithStatusCode(w, http.StatusOK, data...)
}

// WithStatusCode writes a success response with a custom status code. A
// string payload becomes {"message": ...}.
func WithStatusCode(w http.ResponseWriter, statusCode int, data ...any) {
	var payload any
	if len(data) > 0 {
		payload = data[0]
	}
	if message, ok := payload.(string); ok {
		payload = map[string]any{"message": message}
	}
	if payload == nil {
		payload = map[string]any{"message": "ok"}
	}
	writeJSON(w, statusCode, payload)
}

// Fail writes a failure response.
func Fail(w http.ResponseWriter, r *Exception) {
	if r == nil {
		r = &Exception{
			Status:  http.StatusInternalServerError,
			Code:    ecode.ServerErr,
			Message: ecode.Text(ecode.ServerErr),
		}
	}

	status := r.Status
	if status == 0 {
		status = ecode.ToHTTPStatus(r.Code)
	}
	code := r.Code
	if code == 0 {
		code = ecode.RequestErr
	}
	message := r.Message
	if message == "" {
		message = ecode.Text(code)
	}

	writeJSON(w, status, &Exception{
		Code:    code,
		Message: message,
		Errors:  r.Errors,
	})
}

// FailWithError writes a failure response derived from an error. Categorized
// export errors keep their code, message, and field details; anything else
// becomes an internal error without leaking the cause.
func FailWithError(w http.ResponseWriter, err error) {
	var e *export.Error
	if errors.As(err, &e) {
		Fail(w, &Exception{
			Status:  ecode.ToHTTPStatus(e.Code),
			Code:    e.Code,
			Message: e.Message,
			Errors:  fieldsOrNil(e.Fields),
		})
		return
	}
	Fail(w, &Exception{
		Status:  http.StatusInternalServerError,
		Code:    ecode.ServerErr,
		Message: ecode.Text(ecode.ServerErr),
	})
}

func fieldsOrNil(fields map[string]string) any {
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "Failed to encode JSON response", http.StatusInternalServerError)
	}
}
