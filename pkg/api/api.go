// Package api defines the contracts for REST responses.
// It decouples the HTTP surface from the internal domain models.
package api

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is a standardized error message for API responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is a standardized informational message.
type MessageResponse struct {
	Message string `json:"message"`
}

// Success writes a JSON response with the given status code.
func Success(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error writes a standardized JSON error response.
func Error(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
