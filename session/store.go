package session

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Store.Load when no snapshot exists under a key.
var ErrNotFound = errors.New("session not found")

// Store persists snapshot blobs. The blob is opaque to the store.
type Store interface {
	Save(ctx context.Context, key string, blob []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// StoreError indicates a failure of the storage medium itself.
type StoreError struct {
	Op    string // "save", "load", "delete"
	Key   string
	Cause error
}

func (e *StoreError) Error() string {
	msg := e.Op + " session"
	if e.Key != "" {
		msg += " " + e.Key
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
