package domain

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidPayload         = errors.New("invalid payload")
	ErrInvalidPrompt          = errors.New("invalid prompt")
	ErrProviderFailure        = errors.New("provider failure")
	ErrProviderNotConfigured  = errors.New("provider not configured")
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrConcurrentModification = errors.New("concurrent modification")
)
