package store

import (
	"context"
	"errors"
)

var (
	ErrSlotNotFound  = errors.New("slot not found")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Store is a durable key-value slot backend.
// Consumers depend on this interface, never on a concrete backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}
