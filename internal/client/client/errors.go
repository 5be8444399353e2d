package client

import "errors"

var (
	ErrUnavailable           = errors.New("server unavailable")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("already exists")
	ErrValidation            = errors.New("invalid request")
	ErrLocalDataNotAvailable = errors.New("local data unavailable")
)
