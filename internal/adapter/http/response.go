package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/infra/logger"
)

// envelope is the JSON shape of every API response
type envelope struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Code    string      `json:"code,omitempty"`
}

func writeSuccessResponse(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(envelope{Status: true, Message: message, Data: data})
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(envelope{Status: false, Message: message, Data: data, Code: code})
}

// statusFor maps an error kind onto its HTTP status
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindPermissionDenied:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidStateTransition, domain.KindConflict:
		return http.StatusConflict
	case domain.KindReferentialIntegrity, domain.KindOverdraft:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeAppError renders err through the envelope; unclassified errors are logged and hidden
func writeAppError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		log.Error(r.Context(), "Request failed", err, map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
		writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	var data interface{}
	if appErr.Details != "" {
		data = map[string]string{"details": appErr.Details}
	}
	writeErrorResponse(w, statusFor(appErr.Kind), string(appErr.Kind), appErr.Message, data)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return domain.NewValidationError("body", "request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.NewValidationError("body", "invalid request body")
	}
	return nil
}

// decodeOptionalJSON accepts an empty body
func decodeOptionalJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return decodeJSON(r, dst)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, domain.NewValidationError(key, key+" must be an integer")
	}
	return n, nil
}

func queryString(r *http.Request, key string) *string {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil
	}
	return &value
}
