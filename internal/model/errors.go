package model

import "errors"

// Domain error taxonomy. Services wrap these with context via fmt.Errorf
// and %w; handlers map them to HTTP statuses with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrValidation       = errors.New("validation failed")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrRateLimited      = errors.New("rate limited")
	ErrUploadFailed     = errors.New("upload failed")
)

// ErrorPayload is the error shape returned to clients, over REST and the
// socket alike.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
