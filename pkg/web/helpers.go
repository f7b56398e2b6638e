// Package web holds HTTP helpers and middleware shared by the REST handlers.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RespondJSON writes payload as JSON with the given status. A nil payload writes only the status.
func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

// RespondError writes {"error": message} with the given status.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, map[string]string{"error": message})
}

// ValidationErrors maps each failed field to the rule it failed.
// The second result is false when err is not a validator.ValidationErrors.
func ValidationErrors(err error) (map[string]string, bool) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil, false
	}
	errorResponse := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
	}
	return errorResponse, true
}

// PathID returns the trimmed {id} path value. It responds with 400 and returns false when it is empty.
func PathID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid ID: %q", r.PathValue("id")))
		return "", false
	}
	return id, true
}
