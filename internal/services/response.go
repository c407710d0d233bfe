package services

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error" example:"Validation failed"` // Error message
	Details map[string]string `json:"details,omitempty"`                 // Validation details
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, details map[string]string) {
	SendJSON(w, statusCode, ErrorResponse{Error: message, Details: details})
}

// SendJSON writes v as the JSON body with the given status.
func SendJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}
