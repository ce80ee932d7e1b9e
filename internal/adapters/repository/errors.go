package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionMismatch = errors.New("assignment version mismatch")
)
