package store

import "errors"

var (
	ErrConflict            = errors.New("conflict")
	ErrCapacityExceeded    = errors.New("capacity exceeded")
	ErrNotFound            = errors.New("not found")
	ErrIdempotencyConflict = errors.New("idempotency key conflict")
)
