package services

import "context"

// Deduper tracks notification keys that were already processed.
type Deduper interface {
	// Seen marks key as processed and reports whether it had been seen before.
	Seen(ctx context.Context, key string) (bool, error)
	// Forget releases key so that a redelivery is processed again.
	Forget(ctx context.Context, key string) error
}
