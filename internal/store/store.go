// Package store provides the key-value persistence used for site content.
//
// Values are opaque strings (JSON documents in practice) addressed by storage
// keys such as "logan-design-slideshow". Every backend enforces a byte quota
// over the sum of key and value lengths, mirroring browser storage limits.
package store

import (
	"context"
	"errors"
)

// DefaultQuota is the default byte budget of a store.
const DefaultQuota int64 = 5 << 20

// Store errors.
var (
	ErrNotFound      = errors.New("key not found")
	ErrInvalidKey    = errors.New("invalid storage key")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Store defines the interface for key-value storage operations.
type Store interface {
	// Read returns the value stored under key or ErrNotFound.
	Read(ctx context.Context, key string) (string, error)

	// Write stores value under key. It fails with ErrQuotaExceeded and leaves
	// the previous value untouched when the write would exceed the quota.
	Write(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys returns all stored keys in ascending order.
	Keys(ctx context.Context) ([]string, error)

	// Usage returns the bytes in use and the quota.
	Usage(ctx context.Context) (used, quota int64, err error)

	// Close releases backend resources.
	Close() error
}

// entrySize is the number of quota bytes an entry occupies.
func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}

// checkQuota reports whether replacing an entry of oldSize bytes with one of
// newSize bytes keeps used within quota. A quota of zero or less is unlimited.
func checkQuota(used, oldSize, newSize, quota int64) error {
	if quota <= 0 {
		return nil
	}
	if used-oldSize+newSize > quota {
		return ErrQuotaExceeded
	}
	return nil
}
