// Package resource keeps transient binary data behind opaque blob handles.
// Handles are valid only in the running process and are never persisted.
package resource

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/lehigh-university-libraries/studio/internal/apperrors"
)

const handlePrefix = "blob:"

// Releaser frees a transient handle. Releasing an unknown or already
// released handle must be a no-op that reports false.
type Releaser interface {
	Release(handle string) bool
}

type blob struct {
	data     []byte
	mimeType string
}

type Registry struct {
	blobs map[string]blob
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		blobs: make(map[string]blob),
	}
}

// Acquire stores data and returns a new handle for it.
func (r *Registry) Acquire(data []byte, mimeType string) string {
	handle := handlePrefix + uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[handle] = blob{data: data, mimeType: mimeType}
	slog.Debug("Acquired transient resource", "handle", handle, "bytes", len(data), "mime_type", mimeType)
	return handle
}

// Open returns the bytes and MIME type held by handle.
func (r *Registry) Open(handle string) ([]byte, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blobs[handle]
	if !ok {
		return nil, "", apperrors.NotFound("resource", handle)
	}
	return b.data, b.mimeType, nil
}

func (r *Registry) Release(handle string) bool {
	if !strings.HasPrefix(handle, handlePrefix) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blobs[handle]; !ok {
		return false
	}
	delete(r.blobs, handle)
	slog.Debug("Released transient resource", "handle", handle)
	return true
}

// Len reports how many handles are live.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}
