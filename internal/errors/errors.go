package gerr

import "errors"

var (
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrMissingCredentials = errors.New("ads api credentials are not configured")
	ErrAdsAPI             = errors.New("ads api returned an error")
	ErrUnknownBackend     = errors.New("unknown backend")
)
