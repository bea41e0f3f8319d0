package http

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// ErrorResponse represents a standard API error response.
// Messages are generic per error category; details stay in server logs.
type ErrorResponse struct {
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

// MessageResponse represents a standard API success response
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes v as a JSON body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// Encoding errors are not exposed to the client
	_ = json.NewEncoder(w).Encode(v)
}

// WriteMessage writes a 200 {"message": ...} response
func WriteMessage(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

func WriteRequestTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, message)
}

// WriteTooManyRequests writes a 429 with both a Retry-After header and the
// seconds in the body
func WriteTooManyRequests(w http.ResponseWriter, message string, retryAfterSeconds int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	WriteJSON(w, http.StatusTooManyRequests, ErrorResponse{
		Error:             message,
		RetryAfterSeconds: retryAfterSeconds,
	})
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}
