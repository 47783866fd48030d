package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
	"github.com/bcnelson/gateway-address-manager/internal/validation"
)

var log = logrus.WithField("module", "api")

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.WithError(err).Warn("failed to encode response")
		}
	}
}

// respondStandardError writes the standard error envelope.
func respondStandardError(w http.ResponseWriter, status int, code, message, field string, details map[string]any) {
	respondJSON(w, status, &domain.StandardErrorResponse{
		Error: domain.StandardError{
			Code:    code,
			Message: message,
			Field:   field,
			Details: details,
		},
	})
}

// respondError writes a JSON error response with a code derived from status.
func respondError(w http.ResponseWriter, status int, message string) {
	code := domain.ErrCodeInternalError
	switch status {
	case http.StatusBadRequest:
		code = domain.ErrCodeInvalidInput
	case http.StatusNotFound:
		code = domain.ErrCodeResourceNotFound
	case http.StatusUnauthorized:
		code = domain.ErrCodeUnauthorized
	}
	respondStandardError(w, status, code, message, "", nil)
}

// handleError converts domain errors to HTTP errors.
func handleError(w http.ResponseWriter, err error) {
	var verrs validation.ValidationErrors
	var stale *staleETagError
	switch {
	case errors.As(err, &verrs):
		respondValidationErrors(w, verrs)
	case errors.As(err, &stale):
		respondStandardError(w, http.StatusPreconditionFailed, domain.ErrCodePreconditionFailed,
			"resource has been modified", "", map[string]any{
				"currentETag": stale.currentETag,
			})
	case errors.Is(err, domain.ErrIndexOutOfRange):
		respondStandardError(w, http.StatusNotFound, domain.ErrCodeIndexOutOfRange, err.Error(), "index", nil)
	case errors.Is(err, domain.ErrNotFound):
		respondStandardError(w, http.StatusNotFound, domain.ErrCodeResourceNotFound, "not found", "", nil)
	case errors.Is(err, domain.ErrAlreadyExists):
		respondStandardError(w, http.StatusConflict, domain.ErrCodeResourceAlreadyExists, "already exists", "", nil)
	case errors.Is(err, domain.ErrInvalidInput):
		respondStandardError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, err.Error(), "", nil)
	case errors.Is(err, domain.ErrUnauthorized):
		respondStandardError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "unauthorized", "", nil)
	case errors.Is(err, domain.ErrSyncFailed):
		respondStandardError(w, http.StatusServiceUnavailable, domain.ErrCodeSyncFailed, err.Error(), "", nil)
	default:
		log.WithError(err).Error("request failed")
		respondStandardError(w, http.StatusInternalServerError, domain.ErrCodeInternalError, "internal server error", "", nil)
	}
}

// decodeJSON decodes JSON from request body.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}

// parseIndex reads a positional index path parameter. Negative values parse
// fine and are rejected later as out of range.
func parseIndex(raw string) (int, error) {
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ErrInvalidInput
	}
	return i, nil
}

// generateID generates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// respondValidationErrors writes a JSON response for multiple validation errors.
func respondValidationErrors(w http.ResponseWriter, errs validation.ValidationErrors) {
	field := ""
	if len(errs) > 0 {
		field = errs[0].Field
	}
	respondStandardError(w, http.StatusBadRequest, domain.ErrCodeValidationError, errs.Error(), field,
		map[string]any{"errors": errs})
}
