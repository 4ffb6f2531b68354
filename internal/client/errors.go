// Package client is the terminal-side access layer for the snapshot store:
// a versioned HTTP client, the mutation coordinator that serializes
// read-modify-write cycles, and the realtime mirror connection.
package client

import "errors"

var (
	// ErrStoreUnavailable — network failure, timeout, or a non-2xx status
	// that is not a version conflict. A failed put must never be treated as
	// having succeeded.
	ErrStoreUnavailable = errors.New("snapshot store unavailable")

	// ErrVersionConflict — the store rejected a put because another terminal
	// wrote the collection first. The mutation can safely be retried from a
	// fresh get.
	ErrVersionConflict = errors.New("version conflict")

	// ErrConcurrentModification — the coordinator exhausted its retries
	// without winning the compare-and-swap.
	ErrConcurrentModification = errors.New("concurrent modification, retries exhausted")

	// ErrUnauthorized — missing, expired, or insufficient credentials.
	ErrUnauthorized = errors.New("unauthorized")
)
