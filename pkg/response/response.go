// Package response writes the API's JSON envelope:
// {"success": true, "data": ...} or {"success": false, "error": CODE, "message": ...}.
package response

import (
	"encoding/json"
	"net/http"
)

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func Success(w http.ResponseWriter, data any) {
	Data(w, http.StatusOK, data)
}

// Created is Success with a 201.
func Created(w http.ResponseWriter, data any) {
	Data(w, http.StatusCreated, data)
}

func Data(w http.ResponseWriter, status int, data any) {
	JSON(w, status, map[string]any{
		"success": true,
		"data":    data,
	})
}

func Error(w http.ResponseWriter, status int, code string, message string) {
	ErrorDetails(w, status, code, message, nil)
}

// ErrorDetails adds per-field messages under "details" when there are any.
func ErrorDetails(w http.ResponseWriter, status int, code string, message string, details map[string]any) {
	payload := map[string]any{
		"success": false,
		"error":   code,
		"message": message,
	}
	if len(details) > 0 {
		payload["details"] = details
	}
	JSON(w, status, payload)
}
