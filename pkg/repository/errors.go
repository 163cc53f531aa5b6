package repository

import "errors"

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("document already exists")
	// ErrConflict means a conditional update matched no document because the
	// guarded field no longer had the expected value.
	ErrConflict = errors.New("conditional update did not apply")
)
