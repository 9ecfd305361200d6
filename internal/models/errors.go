package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

// AppError wraps an underlying error with an HTTP status and a safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

func NewAppError(err error, status int, message string) *AppError {
	return &AppError{Err: err, Status: status, Message: message}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func WriteError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{
		Status:  "error",
		Message: message,
		Code:    code,
	})
}

// WriteAppError writes err using its status when it is an *AppError, and a
// generic 500 otherwise.
func WriteAppError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		WriteError(w, appErr.Status, appErr.Error())
		return
	}
	WriteError(w, http.StatusInternalServerError, "internal server error")
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
