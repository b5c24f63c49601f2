// Package storage provides the durable key-value stores behind project persistence.
package storage

import "errors"

var (
	// ErrNotFound is returned by Get when the key holds no value.
	ErrNotFound = errors.New("key not found")
	// ErrQuotaExceeded is returned by Set when the write would exceed the
	// store's capacity. The previous value is left in place.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// KV is a durable string-keyed byte store. Every Set replaces the whole value.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}
