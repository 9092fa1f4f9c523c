// Package store persists identity-keyed snapshot blobs.
package store

import "errors"

// ErrNotFound is returned when no snapshot exists for an identity.
var ErrNotFound = errors.New("snapshot not found")

// Store is the identity-keyed blob store the engine consumes. Read may
// return transient errors while a producer is still writing; callers are
// expected to retry. Keys are validated by the caller before use.
type Store interface {
	Exists(key string) (bool, error)
	SizeOf(key string) (int64, error)
	Read(key string) ([]byte, error)
	Put(key string, data []byte) error
	Delete(key string) error
}
