package interviews

import "errors"

var (
	ErrSessionNotFound        = errors.New("session not found")
	ErrSessionNotActive       = errors.New("session not active")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrSessionBusy            = errors.New("session busy")
	ErrEmptyResponse          = errors.New("empty response")
	ErrResponseTooLong        = errors.New("response too long")
	ErrInvalidProfile         = errors.New("invalid candidate profile")
	ErrUnsupportedFormat      = errors.New("unsupported export format")
	// ErrPersistence marks a store failure; the operation is safe to retry.
	ErrPersistence = errors.New("persistence error")
)
