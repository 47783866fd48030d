package domain

import "errors"

// Common errors used throughout the application.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrIndexOutOfRange    = errors.New("address index out of range")
	ErrDraftExpired       = errors.New("form draft expired")
	ErrSyncFailed         = errors.New("sync failed")
	ErrPreconditionFailed = errors.New("precondition failed")
)

// Error codes for standardized API error responses.
const (
	ErrCodeResourceNotFound      = "RESOURCE_NOT_FOUND"
	ErrCodeResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ErrCodeInvalidInput          = "INVALID_INPUT"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeValidationError       = "VALIDATION_ERROR"
	ErrCodeIndexOutOfRange       = "INDEX_OUT_OF_RANGE"
	ErrCodePreconditionFailed    = "PRECONDITION_FAILED"
	ErrCodeSyncFailed            = "SYNC_FAILED"
	ErrCodeInternalError         = "INTERNAL_ERROR"
)

// StandardError is the body of every API error response.
type StandardError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// StandardErrorResponse wraps a StandardError for JSON responses.
type StandardErrorResponse struct {
	Error StandardError `json:"error"`
}
