package repositories

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when an optimistic-concurrency guard fails;
	// the caller holds a stale copy and must refetch.
	ErrConflict = errors.New("record was modified concurrently")
)
