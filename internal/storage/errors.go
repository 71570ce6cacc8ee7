package storage

import "errors"

// Common storage errors
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidAmount = errors.New("invalid stored amount")
	ErrInvalidCursor = errors.New("invalid cursor")
)
