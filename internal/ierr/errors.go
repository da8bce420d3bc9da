package ierr

import "errors"

var (
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource conflict")
	ErrInternalServer = errors.New("internal server error")

	ErrAPIKeyNotFound = errors.New("api key not found or disabled")

	ErrSignatureMissing = errors.New("no stripe signature found")
	ErrSignatureInvalid = errors.New("webhook signature verification failed")
	ErrGateway          = errors.New("payment gateway request failed")
	ErrPersistFailed    = errors.New("license persistence failed")
	ErrDeliveryFailed   = errors.New("license email delivery failed")
	ErrQueueUnavailable = errors.New("task queue unavailable")
)
